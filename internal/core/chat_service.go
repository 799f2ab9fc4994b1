package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"ncc.gov.ng/nora/internal/chat"
)

// Completion is an opened upstream stream plus the selection that produced it.
type Completion struct {
	Provider    chat.Provider
	Tier        Tier
	Model       string
	Temperature float32
	Stream      chat.ChunkStream
}

type ChatService struct {
	llmService *LLMService
	models     ModelTable
	rules      []TierRule
	maxTokens  int
}

func NewChatService(llm *LLMService, models ModelTable, maxTokens int) *ChatService {
	return &ChatService{
		llmService: llm,
		models:     models,
		rules:      DefaultTierRules,
		maxTokens:  maxTokens,
	}
}

// Open validates the envelope, picks tier, model and temperature, resolves the
// credential and starts the upstream stream. No upstream call is made when
// the credential is missing.
func (s *ChatService) Open(ctx context.Context, env chat.Envelope) (*Completion, error) {
	if len(env.Messages) == 0 {
		return nil, &RequestError{Message: InvalidMessagesMessage}
	}
	mode := env.Mode
	if mode == "" {
		mode = chat.DefaultMode
	}
	provider := env.Provider
	if provider == "" {
		provider = chat.DefaultProvider
	}

	backend, ok := s.llmService.Backend(provider)
	if !ok {
		return nil, &RequestError{Message: fmt.Sprintf("Invalid request: unknown provider %q", provider)}
	}

	apiKey, err := backend.Credential(strings.TrimSpace(env.APIKey))
	if err != nil {
		return nil, err
	}

	last := env.Messages[len(env.Messages)-1]
	tier := SelectTier(s.rules, last.Content)
	model, ok := s.models.Model(provider, tier)
	if !ok {
		return nil, &ConfigError{Setting: fmt.Sprintf("NORA_MODELS_%s_%s", strings.ToUpper(string(provider)), strings.ToUpper(string(tier)))}
	}
	temperature := Temperature(tier, mode)

	zerolog.Ctx(ctx).Info().
		Str("provider", string(provider)).
		Str("mode", string(mode)).
		Str("tier", string(tier)).
		Str("model", model).
		Float32("temperature", temperature).
		Int("messages", len(env.Messages)).
		Msg("Opening completion stream")

	stream, err := backend.Stream(ctx, CompletionRequest{
		Model:       model,
		System:      SystemInstruction(),
		Messages:    env.Messages,
		Temperature: temperature,
		MaxTokens:   s.maxTokens,
		APIKey:      apiKey,
	})
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &UpstreamError{Provider: backend.Name(), Err: err}
	}

	return &Completion{
		Provider:    provider,
		Tier:        tier,
		Model:       model,
		Temperature: temperature,
		Stream:      &upstreamStream{inner: stream, provider: backend.Name()},
	}, nil
}

// upstreamStream tags every non-EOF failure with the provider name.
type upstreamStream struct {
	inner    chat.ChunkStream
	provider string
}

func (s *upstreamStream) Recv() (string, error) {
	chunk, err := s.inner.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", &UpstreamError{Provider: s.provider, Err: err}
	}
	return chunk, err
}

func (s *upstreamStream) Close() error {
	return s.inner.Close()
}
