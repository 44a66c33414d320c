package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
	"removal-agent/internal/infrastructure/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertResponseMessage_WithContent(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role:    "assistant",
		Content: "2",
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Equal(t, "2", result.Content)
}

func TestConvertResponseMessage_DefaultsRole(t *testing.T) {
	result := convertResponseMessage(openai.ChatCompletionMessage{Content: "x"})
	assert.Equal(t, entity.RoleAssistant, result.Role)
}

func TestConvertMessages(t *testing.T) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: "You pick removal links."},
		{Role: entity.RoleUser, Content: "1. Text: \"Opt out\""},
	}

	result := convertMessages(messages)

	require.Len(t, result, 2)
	assert.Equal(t, "system", result[0].Role)
	assert.Equal(t, "user", result[1].Role)
	assert.Equal(t, "1. Text: \"Opt out\"", result[1].Content)
}

func TestChat(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"2"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("sk-test", "openai/gpt-4o-mini")
	cfg.BaseURL = server.URL
	cfg.Logger = logger.Nop()
	adapter := NewOpenRouterAdapter(cfg)

	resp, err := adapter.Chat(context.Background(), output.ChatRequest{
		Messages:    []entity.Message{{Role: entity.RoleUser, Content: "pick one"}},
		Temperature: 0.2,
		MaxTokens:   64,
	})
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Message.Content)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("k", "m")
	cfg.BaseURL = server.URL
	_, err := NewOpenRouterAdapter(cfg).Chat(context.Background(), output.ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
