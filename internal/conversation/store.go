package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"ncc.gov.ng/nora/internal/chat"
)

var (
	ErrPending            = errors.New("a reply is still streaming")
	ErrUnknownMode        = errors.New("unknown mode")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrCredentialRequired = errors.New("provider requires an API key")
)

// Completer sends an envelope to the gateway.
type Completer interface {
	Complete(ctx context.Context, env chat.Envelope) (chat.ChunkStream, error)
}

type CredentialStore interface {
	Load() chat.Credentials
	Save(creds chat.Credentials) error
}

// Speaker reads completed replies aloud.
type Speaker interface {
	Speak(text string)
	Stop()
}

type Option func(*Store)

func WithSpeaker(sp Speaker) Option {
	return func(s *Store) { s.speaker = sp }
}

// WithChunkHandler registers fn to observe every chunk appended to the
// in-flight reply. fn runs with the store locked and must not call back
// into the Store.
func WithChunkHandler(fn func(chunk string)) Option {
	return func(s *Store) { s.onChunk = fn }
}

// Store owns the conversation State. Every mutation goes through Reduce
// under mu; network calls, persistence and speech happen here, outside the
// reducer.
type Store struct {
	mu          sync.Mutex
	state       State
	completer   Completer
	credentials CredentialStore
	speaker     Speaker
	onChunk     func(string)
	cancel      context.CancelFunc

	newID func() string
	now   func() time.Time
}

// New creates a Store and loads stored credentials once.
func New(completer Completer, credentials CredentialStore, mode chat.Mode, provider chat.Provider, opts ...Option) *Store {
	s := &Store{
		state:       NewState(mode, provider),
		completer:   completer,
		credentials: credentials,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = Reduce(s.state, CredentialsLoaded{Credentials: credentials.Load()})
	return s
}

// Submit sends text as a user message in the active mode and streams the
// reply into the conversation. Whitespace-only text is ignored. It returns
// the gateway error, or nil if the call was superseded by Clear.
func (s *Store) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.state.Pending {
		s.mu.Unlock()
		return ErrPending
	}
	s.state = Reduce(s.state, Submitted{
		Message: chat.Message{ID: s.newID(), Role: chat.RoleUser, Content: text, CreatedAt: s.now()},
		ReplyID: s.newID(),
	})
	generation := s.state.Generation
	env := chat.Envelope{
		Messages: append([]chat.Message(nil), s.state.Active()...),
		Mode:     s.state.Mode,
		Provider: s.state.Provider,
		APIKey:   s.state.Credentials.For(s.state.Provider),
	}
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log.Debug().Str("mode", string(env.Mode)).Str("provider", string(env.Provider)).Int("messages", len(env.Messages)).Msg("Submitting conversation")

	stream, err := s.completer.Complete(callCtx, env)
	if err != nil {
		return s.fail(generation, err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return s.finish(generation)
		}
		if err != nil {
			return s.fail(generation, err)
		}
		if !s.appendStreamedChunk(generation, chunk) {
			return nil
		}
	}
}

func (s *Store) appendStreamedChunk(generation uint64, chunk string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.current(generation) {
		return false
	}
	s.state = Reduce(s.state, ChunkReceived{Generation: generation, Text: chunk, At: s.now()})
	if s.onChunk != nil && chunk != "" {
		s.onChunk(chunk)
	}
	return true
}

func (s *Store) finish(generation uint64) error {
	s.mu.Lock()
	if !s.state.current(generation) {
		s.mu.Unlock()
		return nil
	}
	reply := s.state.InFlight.Reply.Content
	s.state = Reduce(s.state, StreamFinished{Generation: generation})
	s.cancel = nil
	speak := s.state.VoiceEnabled && s.speaker != nil && reply != ""
	s.mu.Unlock()

	if speak {
		s.speaker.Speak(reply)
	}
	return nil
}

func (s *Store) fail(generation uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.current(generation) {
		return nil
	}
	log.Warn().Err(err).Msg("Chat request failed")
	s.state = Reduce(s.state, StreamFailed{Generation: generation, Message: err.Error()})
	s.cancel = nil
	return err
}

// SwitchMode makes mode active. The outgoing transcript is kept as is.
func (s *Store) SwitchMode(mode chat.Mode) error {
	if !mode.Valid() {
		return ErrUnknownMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, ModeSwitched{Mode: mode})
	return nil
}

// Clear empties the active transcript, abandons its in-flight reply and
// stops speech.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.state.InFlight != nil && s.state.InFlight.Mode == s.state.Mode && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = Reduce(s.state, Cleared{})
	s.mu.Unlock()

	if s.speaker != nil {
		s.speaker.Stop()
	}
}

// SaveCredential stores secret for provider, persists all credentials and
// switches to provider. An empty secret changes nothing except closing the
// credential prompt.
func (s *Store) SaveCredential(provider chat.Provider, secret string) error {
	if !provider.Valid() {
		return ErrUnknownProvider
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, CredentialSaved{Provider: provider, Secret: secret})
	if strings.TrimSpace(secret) == "" || !provider.RequiresAPIKey() {
		return nil
	}
	return s.credentials.Save(s.state.Credentials)
}

// SelectProvider switches provider. A provider that needs a key with none
// stored raises the credential prompt instead.
func (s *Store) SelectProvider(provider chat.Provider) error {
	if !provider.Valid() {
		return ErrUnknownProvider
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if provider.RequiresAPIKey() && s.state.Credentials[provider] == "" {
		s.state = Reduce(s.state, CredentialRequested{Provider: provider})
		return ErrCredentialRequired
	}
	s.state = Reduce(s.state, ProviderSelected{Provider: provider})
	return nil
}

func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, ErrorDismissed{})
}

func (s *Store) SetVoiceEnabled(enabled bool) {
	s.mu.Lock()
	s.state = Reduce(s.state, VoiceToggled{Enabled: enabled})
	s.mu.Unlock()

	if !enabled && s.speaker != nil {
		s.speaker.Stop()
	}
}

func (s *Store) QuickActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Mode.Info().QuickActions...)
}

// Messages returns the active transcript, including the in-flight reply
// when it belongs to the active mode and has content.
func (s *Store) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append([]chat.Message(nil), s.state.Active()...)
	if f := s.state.InFlight; f != nil && f.Mode == s.state.Mode && f.Reply.Content != "" {
		msgs = append(msgs, f.Reply)
	}
	return msgs
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pending
}
