package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ncc.gov.ng/nora/internal/chat"
)

func readAll(t *testing.T, s chat.ChunkStream) (string, error) {
	t.Helper()
	defer s.Close()
	var out string
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out += chunk
	}
}

func TestCompleteStreamsBody(t *testing.T) {
	var got chat.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Hel"))
		w.(http.Flusher).Flush()
		w.Write([]byte("lo"))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	stream, err := c.Complete(context.Background(), chat.Envelope{
		Messages: []chat.Message{{ID: "1", Role: chat.RoleUser, Content: "hi"}},
		Mode:     chat.ModeWellness,
		Provider: chat.ProviderOpenAI,
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	text, err := readAll(t, stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	assert.Equal(t, chat.ModeWellness, got.Mode)
	assert.Equal(t, chat.ProviderOpenAI, got.Provider)
	assert.Equal(t, "sk-test", got.APIKey)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestCompleteErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error", http.StatusInternalServerError, `{"error":"API configuration error: GROQ_API_KEY is not configured"}`, "API configuration error: GROQ_API_KEY is not configured"},
		{"bad request", http.StatusBadRequest, `{"error":"Invalid messages format: Messages must be a non-empty array"}`, "Invalid messages format: Messages must be a non-empty array"},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, srv.Client()).Complete(context.Background(), chat.Envelope{})
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestCompleteTrailerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Trailer", chat.StreamErrorTrailer)
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		w.Header().Set(chat.StreamErrorTrailer, "Groq API Error: connection reset")
	}))
	defer srv.Close()

	stream, err := New(srv.URL, nil).Complete(context.Background(), chat.Envelope{})
	require.NoError(t, err)

	text, err := readAll(t, stream)
	assert.Equal(t, "partial", text)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Groq API Error: connection reset", apiErr.Message)
}

func TestCompleteCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := New(srv.URL, nil).Complete(ctx, chat.Envelope{})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", chunk)

	cancel()
	_, err = stream.Recv()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestCompleteSplitCharacter(t *testing.T) {
	cases := []struct {
		name   string
		writes []string
		want   string
	}{
		{name: "alone", writes: []string{"\xc3", "\xa9"}, want: "é"},
		{name: "inside text", writes: []string{"caf\xc3", "\xa9 au lait"}, want: "café au lait"},
		{name: "four bytes", writes: []string{"ok \xf0\x9f", "\x91\x8d"}, want: "ok 👍"},
		{name: "truncated", writes: []string{"ok\xc3"}, want: "ok�"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for _, s := range tc.writes {
					w.Write([]byte(s))
					w.(http.Flusher).Flush()
				}
			}))
			defer srv.Close()

			stream, err := New(srv.URL, nil).Complete(context.Background(), chat.Envelope{
				Messages: []chat.Message{{ID: "1", Role: chat.RoleUser, Content: "hi"}},
			})
			require.NoError(t, err)
			defer stream.Close()

			var text string
			for {
				chunk, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				assert.True(t, utf8.ValidString(chunk), "chunk %q", chunk)
				text += chunk
			}
			assert.Equal(t, tc.want, text)
		})
	}
}

func TestCompleteRunes(t *testing.T) {
	assert.Equal(t, 0, completeRunes(nil))
	assert.Equal(t, 3, completeRunes([]byte("abc")))
	assert.Equal(t, 3, completeRunes([]byte("caf\xc3")))
	assert.Equal(t, 5, completeRunes([]byte("caf\xc3\xa9")))
	assert.Equal(t, 0, completeRunes([]byte("\xe2\x82")))
	assert.Equal(t, 2, completeRunes([]byte("\xa9\xa9")))
}
