// Package chat holds the data model shared by the gateway and the conversation client.
package chat

import (
	"io"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"` // display only
}

// Envelope is the payload sent to POST /api/chat. It is built fresh for every submission.
type Envelope struct {
	Messages []Message `json:"messages"`
	Mode     Mode      `json:"mode,omitempty"`
	Provider Provider  `json:"provider,omitempty"`
	APIKey   string    `json:"apiKey,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ChunkStream yields incremental completion text in the order it was produced.
// Recv returns io.EOF once the stream has ended.
type ChunkStream interface {
	Recv() (string, error)
	Close() error
}

// StreamErrorTrailer carries the message of a failure that happened after the
// response status was already sent.
const StreamErrorTrailer = "X-Nora-Error"

const (
	TierHeader  = "X-Nora-Tier"
	ModelHeader = "X-Nora-Model"
)

// SliceStream is a ChunkStream over a fixed list of chunks.
type SliceStream struct {
	chunks []string
	pos    int
}

func NewSliceStream(chunks ...string) *SliceStream {
	return &SliceStream{chunks: chunks}
}

func (s *SliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *SliceStream) Close() error { return nil }
