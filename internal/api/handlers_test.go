package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ncc.gov.ng/nora/internal/chat"
	"ncc.gov.ng/nora/internal/core"
)

type stubBackend struct {
	name      string
	key       string
	chunks    []string
	openErr   error
	midErr    error
	calls     int
	lastModel string
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Credential(string) (string, error) {
	if b.key == "" {
		return "", &core.ConfigError{Setting: "GROQ_API_KEY"}
	}
	return b.key, nil
}

func (b *stubBackend) Stream(_ context.Context, req core.CompletionRequest) (chat.ChunkStream, error) {
	b.calls++
	b.lastModel = req.Model
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &stubStream{chunks: b.chunks, err: b.midErr}, nil
}

func (b *stubBackend) Close() error { return nil }

type stubStream struct {
	chunks []string
	err    error
}

func (s *stubStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *stubStream) Close() error { return nil }

func newTestRouter(backend *stubBackend, limiter *RateLimiter) http.Handler {
	return newTimedRouter(backend, time.Minute, limiter)
}

func newTimedRouter(backend core.Backend, maxDuration time.Duration, limiter *RateLimiter) http.Handler {
	llm := core.NewLLMServiceWithBackends(map[chat.Provider]core.Backend{chat.ProviderGroq: backend})
	models := core.NewModelTable(map[string]map[string]string{
		"groq": {"fast": "llama-3.1-8b-instant", "reasoning": "llama-3.3-70b-versatile", "creative": "qwen/qwen3-32b"},
	})
	handler := NewAPIHandler(core.NewChatService(llm, models, 1000), maxDuration)
	return NewRouter(handler, limiter)
}

// hangingBackend emits its chunks and then blocks until the request
// context ends, like an upstream that stalls.
type hangingBackend struct {
	chunks []string
}

func (b *hangingBackend) Name() string { return "Groq" }

func (b *hangingBackend) Credential(string) (string, error) { return "gsk", nil }

func (b *hangingBackend) Stream(ctx context.Context, _ core.CompletionRequest) (chat.ChunkStream, error) {
	return &hangingStream{ctx: ctx, chunks: b.chunks}, nil
}

func (b *hangingBackend) Close() error { return nil }

type hangingStream struct {
	ctx    context.Context
	chunks []string
}

func (s *hangingStream) Recv() (string, error) {
	if len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		return chunk, nil
	}
	<-s.ctx.Done()
	return "", s.ctx.Err()
}

func (s *hangingStream) Close() error { return nil }

func postChat(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp chat.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestChatHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"messages": [`, "Invalid request format: Request body must be valid JSON"},
		{"empty messages", `{"messages": []}`, "Invalid messages format: Messages must be a non-empty array"},
		{"missing messages", `{}`, "Invalid messages format: Messages must be a non-empty array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{name: "Groq", key: "gsk"}
			rec := postChat(newTestRouter(backend, nil), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
			assert.Zero(t, backend.calls)
		})
	}
}

func TestChatHandlerMissingKey(t *testing.T) {
	backend := &stubBackend{name: "Groq"}
	rec := postChat(newTestRouter(backend, nil), `{"messages":[{"role":"user","content":"hi"}],"provider":"groq"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "API configuration error: GROQ_API_KEY is not configured", decodeError(t, rec))
	assert.Zero(t, backend.calls)
}

func TestChatHandlerStreams(t *testing.T) {
	backend := &stubBackend{name: "Groq", key: "gsk", chunks: []string{"Hel", "lo"}}
	rec := postChat(newTestRouter(backend, nil), `{"messages":[{"role":"user","content":"Can you analyze this?"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "reasoning", rec.Header().Get(chat.TierHeader))
	assert.Equal(t, "llama-3.3-70b-versatile", rec.Header().Get(chat.ModelHeader))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "Hello", rec.Body.String())
	assert.True(t, rec.Flushed)
	assert.Empty(t, rec.Result().Trailer.Get(chat.StreamErrorTrailer))
	assert.Equal(t, 1, backend.calls)
}

func TestChatHandlerUpstreamFailure(t *testing.T) {
	backend := &stubBackend{name: "Groq", key: "gsk", openErr: errors.New("model overloaded")}
	rec := postChat(newTestRouter(backend, nil), `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Groq API Error: model overloaded", decodeError(t, rec))
}

func TestChatHandlerFailureBeforeFirstChunk(t *testing.T) {
	backend := &stubBackend{name: "Groq", key: "gsk", midErr: errors.New("stream reset")}
	rec := postChat(newTestRouter(backend, nil), `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Groq API Error: stream reset", decodeError(t, rec))
}

func TestChatHandlerMidStreamFailure(t *testing.T) {
	backend := &stubBackend{name: "Groq", key: "gsk", chunks: []string{"Hel"}, midErr: errors.New("stream reset")}
	rec := postChat(newTestRouter(backend, nil), `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hel", rec.Body.String())
	assert.Equal(t, "Groq API Error: stream reset", rec.Result().Trailer.Get(chat.StreamErrorTrailer))
}

func TestRateLimiter(t *testing.T) {
	backend := &stubBackend{name: "Groq", key: "gsk", chunks: []string{"ok"}}
	router := newTestRouter(backend, NewRateLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		rec := postChat(router, `{"messages":[{"role":"user","content":"hi"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postChat(router, `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
	assert.Equal(t, 2, backend.calls)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(10, 2)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Len(t, rl.limits, 2)

	clock = clock.Add(limiterIdleTTL + time.Second)
	assert.True(t, rl.Allow("10.0.0.3"))
	assert.Len(t, rl.limits, 1)
	assert.Contains(t, rl.limits, "10.0.0.3")
}

func TestRateLimiterKeepsDrainedClients(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(0.001, 1)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	clock = clock.Add(limiterIdleTTL + time.Second)
	rl.Allow("10.0.0.2")
	assert.Contains(t, rl.limits, "10.0.0.1", "a bucket that has not refilled survives the sweep")
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubBackend{name: "Groq"}, NewRateLimiter(0.001, 1))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "health is not rate limited")
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
}

func TestChatHandlerDeadline(t *testing.T) {
	t.Run("after first chunk", func(t *testing.T) {
		router := newTimedRouter(&hangingBackend{chunks: []string{"Hel"}}, 50*time.Millisecond, nil)

		start := time.Now()
		rec := postChat(router, `{"messages":[{"role":"user","content":"hi"}]}`)

		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Hel", rec.Body.String())
		assert.Equal(t, "Groq API Error: context deadline exceeded", rec.Result().Trailer.Get(chat.StreamErrorTrailer))
	})

	t.Run("before first chunk", func(t *testing.T) {
		router := newTimedRouter(&hangingBackend{}, 50*time.Millisecond, nil)

		rec := postChat(router, `{"messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "Groq API Error: context deadline exceeded", decodeError(t, rec))
	})
}
