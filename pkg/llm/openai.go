package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client         *openai.Client
	requestTimeout time.Duration
	retryAttempts  uint
	retryDelay     time.Duration
	retryMaxDelay  time.Duration
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a provider client from configuration.
func NewOpenAIClient(cfg *config.LLMConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		requestTimeout: cfg.RequestTimeout,
		retryAttempts:  3,
		retryDelay:     time.Second,
		retryMaxDelay:  10 * time.Second,
	}
}

// Complete performs one chat completion with bounded retries on transient
// provider failures.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if req.JSONResponse {
		params.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var response openai.ChatCompletionResponse
	err := retry.Do(
		func() error {
			var apiErr error
			response, apiErr = c.client.CreateChatCompletion(callCtx, params)
			return apiErr
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(c.retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(callCtx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying LLM call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(response.Choices) == 0 {
		return nil, &Error{Message: "provider returned no choices"}
	}

	return &CompletionResponse{
		Message: fromOpenAIMessage(response.Choices[0].Message),
		Usage: Usage{
			InputTokens:  response.Usage.PromptTokens,
			OutputTokens: response.Usage.CompletionTokens,
		},
	}, nil
}

// Speech renders text to audio through the provider's text-to-speech
// endpoint and returns the raw audio bytes.
func (c *OpenAIClient) Speech(ctx context.Context, model, voice, input string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.client.CreateSpeech(callCtx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(model),
		Input: input,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, wrapProviderError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}

// isRetryableError treats rate limits and server-side failures as
// transient; auth and request-shape errors fail fast.
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	// Transport-level errors (connection refused, timeouts) have no status.
	return !errors.Is(err, context.Canceled)
}

func wrapProviderError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	return &Error{Message: err.Error(), Err: err}
}

func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{Role: string(m.Role)}
		if len(m.Parts) > 0 {
			om.MultiContent = toOpenAIParts(m.Parts)
		} else {
			om.Content = m.Content
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		if m.Role == models.RoleTool {
			om.ToolCallID = m.ToolCallID
			om.Name = m.ToolName
		}
		out = append(out, om)
	}
	return out
}

// toOpenAIParts maps multimodal parts onto the chat API. Audio and video
// URLs are degraded to text so any OpenAI-compatible backend can consume
// the message.
func toOpenAIParts(parts []models.MessagePart) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case models.PartText:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case models.PartImageURL:
			out = append(out, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: p.URL},
			})
		default:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("[%s] %s", p.Type, p.URL),
			})
		}
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) models.Message {
	msg := models.Message{
		Role:    models.RoleAssistant,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
