package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if captured != nil {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	var captured capturedRequest
	var auth string
	srv := newTestServer(t, http.StatusOK, `{
		"id": "cmpl-1",
		"object": "chat.completion",
		"model": "gemini-2.0-flash-exp",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "I hear you."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
	}`, &captured, &auth)
	defer srv.Close()

	m, err := NewChatModel(Config{APIKey: "key", BaseURL: srv.URL + "/", Model: "gemini-2.0-flash-exp"})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be kind"),
		schema.UserMessage("I feel anxious today"),
	})
	require.NoError(t, err)

	assert.Equal(t, "I hear you.", msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, 16, msg.ResponseMeta.Usage.TotalTokens)
	assert.Equal(t, "Bearer key", auth)

	assert.Equal(t, "gemini-2.0-flash-exp", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be kind", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "I feel anxious today", captured.Messages[1].Content)
}

func TestGenerateReportsAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized,
		`{"error": {"message": "API key not valid", "type": "invalid_request_error"}}`, nil, nil)
	defer srv.Close()

	m, err := NewChatModel(Config{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateWithoutChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"id": "x", "choices": []}`, nil, nil)
	defer srv.Close()

	m, err := NewChatModel(Config{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestNewChatModelRequiresModel(t *testing.T) {
	_, err := NewChatModel(Config{Model: "  "})
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestBindToolsUnsupported(t *testing.T) {
	m, err := NewChatModel(Config{Model: "m"})
	require.NoError(t, err)
	assert.ErrorIs(t, m.BindTools(nil), ErrToolsDisabled)
}
