package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellai/inkwell/internal/config"
)

func TestClientChat(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "今天过得怎么样？"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1/",
		Model:   "gpt-4o-mini",
	})

	temp := float32(0.8)
	maxTokens := 500
	result, err := client.Chat(context.Background(), Request{
		Messages:    []Message{{Role: "user", Content: "你好"}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)

	assert.Equal(t, "今天过得怎么样？", result.Message.Content)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 20, result.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.8, float64(*got.Temperature), 0.001)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 500, *got.MaxTokens)
}

func TestClientChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "type": "auth_error"},
		})
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClientChatNotConfigured(t *testing.T) {
	client := NewClient(config.LLMConfig{})
	assert.False(t, client.Configured())

	_, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
}
