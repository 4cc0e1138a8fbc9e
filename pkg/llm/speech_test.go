package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/cache"
)

type fakeSpeechClient struct {
	audio    []byte
	err      error
	gotModel string
	gotVoice string
	gotInput string
}

func (f *fakeSpeechClient) Speech(_ context.Context, model, voice, input string) ([]byte, error) {
	f.gotModel = model
	f.gotVoice = voice
	f.gotInput = input
	return f.audio, f.err
}

type capturingAudioStore struct {
	key   string
	value []byte
	ttl   time.Duration
	err   error
}

func (s *capturingAudioStore) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.key = key
	s.value = value
	s.ttl = ttl
	return s.err
}

func TestSynthesizeStoresAudioAndReturnsURL(t *testing.T) {
	client := &fakeSpeechClient{audio: []byte("mp3 bytes")}
	store := &capturingAudioStore{}
	s := &SpeechSynthesizer{client: client, store: store, model: "tts-1"}

	url, err := s.Synthesize(context.Background(), "Welcome back!", "nova")
	require.NoError(t, err)

	assert.Equal(t, "tts-1", client.gotModel)
	assert.Equal(t, "nova", client.gotVoice)
	assert.Equal(t, "Welcome back!", client.gotInput)

	require.True(t, strings.HasPrefix(url, "/api/v1/audio/"))
	audioID := strings.TrimPrefix(url, "/api/v1/audio/")
	assert.Equal(t, cache.AudioKey(audioID), store.key)
	assert.Equal(t, []byte("mp3 bytes"), store.value)
	assert.Equal(t, cache.AudioTTL, store.ttl)
}

func TestSynthesizeProviderFailure(t *testing.T) {
	client := &fakeSpeechClient{err: &Error{StatusCode: 503, Message: "unavailable"}}
	store := &capturingAudioStore{}
	s := &SpeechSynthesizer{client: client, store: store, model: "tts-1"}

	_, err := s.Synthesize(context.Background(), "hello", "nova")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.Empty(t, store.key)
}

func TestSynthesizeStoreFailure(t *testing.T) {
	client := &fakeSpeechClient{audio: []byte("mp3 bytes")}
	store := &capturingAudioStore{err: fmt.Errorf("redis down")}
	s := &SpeechSynthesizer{client: client, store: store, model: "tts-1"}

	_, err := s.Synthesize(context.Background(), "hello", "nova")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store synthesized audio")
}
