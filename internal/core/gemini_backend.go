package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"ncc.gov.ng/nora/internal/chat"
)

// GeminiBackend serves requests with the server's Google AI key.
// User-supplied keys are ignored.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend returns an unconfigured backend when apiKey is empty, so
// requests fail with a configuration error instead of the server refusing to start.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return &GeminiBackend{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (b *GeminiBackend) Name() string { return "Gemini" }

func (b *GeminiBackend) Credential(string) (string, error) {
	if b.client == nil {
		return "", &ConfigError{Setting: "GOOGLE_GENERATIVE_AI_API_KEY"}
	}
	return "", nil
}

func (b *GeminiBackend) Stream(ctx context.Context, req CompletionRequest) (chat.ChunkStream, error) {
	if b.client == nil {
		return nil, &ConfigError{Setting: "GOOGLE_GENERATIVE_AI_API_KEY"}
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("prompt history is empty for chat completion")
	}

	model := b.client.GenerativeModel(req.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}

	temp := req.Temperature
	maxTokens := int32(req.MaxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	// Gemini takes the earlier turns as history and the last one as the prompt.
	session := model.StartChat()
	last := len(req.Messages) - 1
	for _, m := range req.Messages[:last] {
		role := "user"
		if m.Role == chat.RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	iter := session.SendMessageStream(ctx, genai.Text(req.Messages[last].Content))
	return &geminiStream{iter: iter}, nil
}

func (b *GeminiBackend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if text := responseText(resp); text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) Close() error { return nil }

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Debug().Str("part_type", fmt.Sprintf("%T", part)).Msg("Gemini response part was not text")
		}
	}
	return text.String()
}
