package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientGenerate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello back"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{
		Provider: "openai",
		APIKey:   "sk-test",
		BaseURL:  server.URL,
		Model:    "gpt-4o-mini",
	})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), Request{Prompt: "hi", MaxTokens: 128, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "hello back", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, 128, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "hi", gotReq.Messages[0].Content)
}

func TestOpenAIClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIClientRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	require.Error(t, err)
}

func TestNewFactorySelectsProvider(t *testing.T) {
	client, err := New(Config{Provider: "openai", APIKey: "sk-test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	client, err = New(Config{Provider: "cli", WorkDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "cli", client.Name())

	_, err = New(Config{Provider: "gemini"}, nil)
	require.Error(t, err)
}

func TestCLIClientArgsSessionFlow(t *testing.T) {
	client, err := NewCLIClient(Config{Provider: "cli", WorkDir: t.TempDir(), Model: "sonnet"}, nil)
	require.NoError(t, err)

	first := client.buildArgs("do the thing")
	assert.Contains(t, first, "--session-id")
	assert.NotContains(t, first, "--resume")
	assert.Contains(t, first, "sonnet")

	client.started = true
	second := client.buildArgs("continue")
	assert.Contains(t, second, "--resume")
	assert.NotContains(t, second, "--session-id")
}
