package core

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"ncc.gov.ng/nora/internal/chat"
)

// OpenAIBackend talks to any OpenAI-compatible chat completions API. Groq is
// served through its OpenAI-compatible endpoint.
type OpenAIBackend struct {
	name          string
	baseURL       string
	serverKey     string
	keySetting    string
	acceptUserKey bool
	httpClient    *http.Client
}

func NewGroqBackend(apiKey, baseURL string) *OpenAIBackend {
	return &OpenAIBackend{
		name:       "Groq",
		baseURL:    baseURL,
		serverKey:  apiKey,
		keySetting: "GROQ_API_KEY",
	}
}

func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	return &OpenAIBackend{
		name:          "OpenAI",
		baseURL:       baseURL,
		serverKey:     apiKey,
		keySetting:    "OPENAI_API_KEY",
		acceptUserKey: true,
	}
}

// WithHTTPClient overrides the transport used for upstream calls.
func (b *OpenAIBackend) WithHTTPClient(c *http.Client) *OpenAIBackend {
	b.httpClient = c
	return b
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Credential(userKey string) (string, error) {
	if b.acceptUserKey && userKey != "" {
		return userKey, nil
	}
	if b.serverKey == "" {
		return "", &ConfigError{Setting: b.keySetting}
	}
	return b.serverKey, nil
}

func (b *OpenAIBackend) Stream(ctx context.Context, req CompletionRequest) (chat.ChunkStream, error) {
	clientConfig := openai.DefaultConfig(req.APIKey)
	if b.baseURL != "" {
		clientConfig.BaseURL = b.baseURL
	}
	if b.httpClient != nil {
		clientConfig.HTTPClient = b.httpClient
	}
	client := openai.NewClientWithConfig(clientConfig)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.System,
	})
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream request failed: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

func (b *OpenAIBackend) Close() error { return nil }

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips role-only and empty deltas. io.EOF is passed through unchanged.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
