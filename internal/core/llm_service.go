package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"ncc.gov.ng/nora/internal/chat"
	"ncc.gov.ng/nora/internal/config"
)

// CompletionRequest is the provider-neutral form of one upstream call.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []chat.Message
	Temperature float32
	MaxTokens   int
	APIKey      string
}

// Backend is one external completion provider.
type Backend interface {
	// Name is the vendor name used in error messages.
	Name() string
	// Credential resolves the key to call the provider with, preferring the
	// user-supplied key where the provider accepts one. It returns a
	// *ConfigError when no key is available.
	Credential(userKey string) (string, error)
	Stream(ctx context.Context, req CompletionRequest) (chat.ChunkStream, error)
	Close() error
}

type LLMService struct {
	backends map[chat.Provider]Backend
}

// NewLLMService builds one backend per provider from the server configuration.
func NewLLMService(ctx context.Context, cfg *config.Config) (*LLMService, error) {
	gemini, err := NewGeminiBackend(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini backend: %w", err)
	}

	return NewLLMServiceWithBackends(map[chat.Provider]Backend{
		chat.ProviderGroq:   NewGroqBackend(cfg.GroqAPIKey, cfg.GroqBaseURL),
		chat.ProviderOpenAI: NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		chat.ProviderGemini: gemini,
		chat.ProviderClaude: NewClaudeBackend(cfg.AnthropicAPIKey, ""),
	}), nil
}

func NewLLMServiceWithBackends(backends map[chat.Provider]Backend) *LLMService {
	return &LLMService{backends: backends}
}

func (s *LLMService) Backend(p chat.Provider) (Backend, bool) {
	b, ok := s.backends[p]
	return b, ok
}

func (s *LLMService) Close() {
	for p, b := range s.backends {
		if err := b.Close(); err != nil {
			log.Error().Err(err).Str("provider", string(p)).Msg("Error closing LLM backend")
		}
	}
}
