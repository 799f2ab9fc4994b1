package core

import (
	"context"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"ncc.gov.ng/nora/internal/chat"
)

// ClaudeBackend calls the Anthropic Messages API with the user's key,
// falling back to ANTHROPIC_API_KEY.
type ClaudeBackend struct {
	serverKey string
	baseURL   string
}

func NewClaudeBackend(apiKey, baseURL string) *ClaudeBackend {
	return &ClaudeBackend{serverKey: apiKey, baseURL: baseURL}
}

func (b *ClaudeBackend) Name() string { return "Claude" }

func (b *ClaudeBackend) Credential(userKey string) (string, error) {
	if userKey != "" {
		return userKey, nil
	}
	if b.serverKey == "" {
		return "", &ConfigError{Setting: "ANTHROPIC_API_KEY"}
	}
	return b.serverKey, nil
}

func (b *ClaudeBackend) Stream(ctx context.Context, req CompletionRequest) (chat.ChunkStream, error) {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(req.APIKey)}
	if b.baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(b.baseURL))
	}
	client := anthropic.NewClient(opts...)

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == chat.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: req.System}},
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	})
	return &claudeStream{stream: stream}, nil
}

func (b *ClaudeBackend) Close() error { return nil }

type claudeStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *claudeStream) Recv() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
			return text.Text, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *claudeStream) Close() error {
	return s.stream.Close()
}
