package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ncc.gov.ng/nora/internal/chat"
)

func TestOpenAIBackendStream(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{`{"role":"assistant"}`, `{"content":"Hel"}`, `{"content":"lo"}`} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":%s}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	backend := NewGroqBackend("gsk-test", srv.URL)
	stream, err := backend.Stream(context.Background(), CompletionRequest{
		Model:       "llama-3.1-8b-instant",
		System:      "be nice",
		Messages:    []chat.Message{{Role: chat.RoleUser, Content: "hi"}, {Role: chat.RoleAssistant, Content: "hey"}, {Role: chat.RoleUser, Content: "again"}},
		Temperature: 0.7,
		MaxTokens:   1000,
		APIKey:      "gsk-test",
	})
	require.NoError(t, err)
	defer stream.Close()

	text, err := drain(t, stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	assert.Equal(t, "Bearer gsk-test", auth)
	assert.Equal(t, "llama-3.1-8b-instant", got["model"])
	assert.Equal(t, true, got["stream"])
	assert.EqualValues(t, 1000, got["max_tokens"])

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "be nice", messages[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", messages[2].(map[string]any)["role"])
}

func TestOpenAIBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	backend := NewOpenAIBackend("", srv.URL)
	_, err := backend.Stream(context.Background(), CompletionRequest{
		Model:    "gpt-4o",
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		APIKey:   "sk-bad",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestBackendCredentials(t *testing.T) {
	groq := NewGroqBackend("", "")
	_, err := groq.Credential("sk-user")
	assert.EqualError(t, err, "API configuration error: GROQ_API_KEY is not configured", "groq ignores user keys")

	openai := NewOpenAIBackend("", "")
	key, err := openai.Credential("sk-user")
	require.NoError(t, err)
	assert.Equal(t, "sk-user", key)
	_, err = openai.Credential("")
	assert.EqualError(t, err, "API configuration error: OPENAI_API_KEY is not configured")

	claude := NewClaudeBackend("server-key", "")
	key, err = claude.Credential("")
	require.NoError(t, err)
	assert.Equal(t, "server-key", key)

	gemini, err := NewGeminiBackend(context.Background(), "")
	require.NoError(t, err)
	_, err = gemini.Credential("ignored")
	assert.EqualError(t, err, "API configuration error: GOOGLE_GENERATIVE_AI_API_KEY is not configured")
}
