package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/config"
)

// AudioStore parks synthesized audio until the client fetches it over the
// audio route. Implemented by cache.Client.
type AudioStore interface {
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type speechClient interface {
	Speech(ctx context.Context, model, voice, input string) ([]byte, error)
}

// SpeechSynthesizer voices assistant replies through the provider's
// text-to-speech endpoint, using the voice bound to the assistant.
type SpeechSynthesizer struct {
	client speechClient
	store  AudioStore
	model  string
}

// NewSpeechSynthesizer creates a synthesizer on the configured TTS model.
func NewSpeechSynthesizer(client *OpenAIClient, store AudioStore, cfg *config.LLMConfig) *SpeechSynthesizer {
	return &SpeechSynthesizer{client: client, store: store, model: cfg.TTSModel}
}

// Synthesize renders text with the given voice and returns the relative URL
// the audio can be fetched from.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	audio, err := s.client.Speech(ctx, s.model, voiceID, text)
	if err != nil {
		return "", err
	}

	audioID := uuid.NewString()
	if err := s.store.SetBytes(ctx, cache.AudioKey(audioID), audio, cache.AudioTTL); err != nil {
		return "", fmt.Errorf("failed to store synthesized audio: %w", err)
	}
	return "/api/v1/audio/" + audioID, nil
}
