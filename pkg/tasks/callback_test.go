package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

func testEnvelope() *models.CallbackEnvelope {
	return &models.CallbackEnvelope{
		AssistantID: "assistant",
		ThreadID:    "thread",
		EventID:     "run_async",
		EventTime:   time.Now().UnixMilli(),
		EventContent: models.CallbackEventContent{
			RunID:  "run-1",
			Status: "completed",
			Data:   &models.CallbackData{Output: "hello"},
		},
	}
}

func newTestSender(baseURL string) *CallbackSender {
	cfg := config.DefaultCallbackConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = time.Second
	return NewCallbackSender(cfg)
}

func TestCallbackSenderDelivers(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	require.NoError(t, sender.Send(context.Background(), EndpointRun, testEnvelope()))
	assert.Equal(t, EndpointRun, gotPath.Load())
}

func TestCallbackSenderRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code":200}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	require.NoError(t, sender.Send(context.Background(), EndpointRun, testEnvelope()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallbackSenderRejectedAckFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"code":500}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	err := sender.Send(context.Background(), EndpointRun, testEnvelope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected with code 500")
	// A 2xx transport response with a failing body code is still retryable.
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallbackSenderDisabledIsNoop(t *testing.T) {
	sender := newTestSender("")
	assert.False(t, sender.Enabled())
	require.NoError(t, sender.Send(context.Background(), EndpointRun, testEnvelope()))
}

func TestRunEnvelope(t *testing.T) {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)

	t.Run("completed", func(t *testing.T) {
		env := runEnvelope(&models.WorkflowRun{
			ID:           "run-1",
			ThreadID:     "thread",
			AssistantID:  "assistant",
			Status:       models.RunCompleted,
			Output:       "done",
			InputTokens:  120,
			OutputTokens: 40,
			StartedAt:    started,
			FinishedAt:   &finished,
		}, "run_async")

		assert.Equal(t, "run_async", env.EventID)
		assert.Equal(t, "completed", env.EventContent.Status)
		require.NotNil(t, env.EventContent.Data)
		assert.Equal(t, "done", env.EventContent.Data.Output)
		assert.Equal(t, 120, env.EventContent.Data.InputTokens)
		assert.Equal(t, int64(1500), env.EventContent.ProcessingTime)
		assert.Equal(t, finished.UnixMilli(), env.EventContent.FinishedAt)
		assert.Nil(t, env.EventContent.Error)
	})

	t.Run("failed", func(t *testing.T) {
		env := runEnvelope(&models.WorkflowRun{
			ID:           "run-2",
			Status:       models.RunFailed,
			ErrorMessage: "node sales: boom",
			StartedAt:    started,
			FinishedAt:   &finished,
		}, "run_async")

		assert.Equal(t, "failed", env.EventContent.Status)
		assert.Nil(t, env.EventContent.Data)
		require.NotNil(t, env.EventContent.Error)
		assert.Equal(t, "node sales: boom", *env.EventContent.Error)
	})
}
