// Package client calls the gateway's chat endpoint and exposes the reply as a ChunkStream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"ncc.gov.ng/nora/internal/chat"
)

// Error is a failure reported by the gateway, either as a non-200 response
// or as a stream error trailer.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the gateway at baseURL. A nil httpClient means
// http.DefaultClient. No client timeout is set; calls are bounded by ctx.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Complete(ctx context.Context, env chat.Envelope) (chat.ChunkStream, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return &bodyStream{resp: resp, buf: make([]byte, 4096)}, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload chat.ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return &Error{StatusCode: resp.StatusCode, Message: payload.Error}
}

// bodyStream yields body reads as chunks. Chunk boundaries follow network
// reads, not upstream deltas, except that a multi-byte character split
// across reads is held back until it is complete.
type bodyStream struct {
	resp    *http.Response
	buf     []byte
	pending []byte
	err     error
}

func (s *bodyStream) Recv() (string, error) {
	for s.err == nil {
		n, err := s.resp.Body.Read(s.buf)
		if err != nil {
			s.err = err
		}
		if n == 0 {
			continue
		}
		data := append(s.pending, s.buf[:n]...)
		cut := completeRunes(data)
		chunk := string(data[:cut])
		s.pending = append([]byte(nil), data[cut:]...)
		if chunk != "" {
			return chunk, nil
		}
	}
	if !errors.Is(s.err, io.EOF) {
		return "", s.err
	}
	if len(s.pending) > 0 {
		// A character cut off by the end of the body.
		rest := strings.ToValidUTF8(string(s.pending), string(utf8.RuneError))
		s.pending = nil
		return rest, nil
	}
	// Trailers are only populated once the body has been read to the end.
	if msg := s.resp.Trailer.Get(chat.StreamErrorTrailer); msg != "" {
		return "", &Error{StatusCode: http.StatusInternalServerError, Message: msg}
	}
	return "", io.EOF
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

func (s *bodyStream) Close() error {
	return s.resp.Body.Close()
}
