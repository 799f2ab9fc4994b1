// Package conversation keeps the client's per-mode transcripts and drives
// submissions to the gateway.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"ncc.gov.ng/nora/internal/chat"
)

// InFlight is the reply currently being streamed. It stays bound to the mode
// and provider that issued it.
type InFlight struct {
	Generation uint64
	Mode       chat.Mode
	Provider   chat.Provider
	Reply      chat.Message
}

// State is the complete client state. Values returned by Reduce never share
// mutable storage with their input.
type State struct {
	Mode          chat.Mode
	Provider      chat.Provider
	Conversations map[chat.Mode][]chat.Message
	InFlight      *InFlight
	Pending       bool
	Error         string
	// CredentialPrompt asks the UI to collect a provider key.
	CredentialPrompt bool
	Credentials      chat.Credentials
	VoiceEnabled     bool
	Generation       uint64
}

func NewState(mode chat.Mode, provider chat.Provider) State {
	return State{
		Mode:          mode,
		Provider:      provider,
		Conversations: map[chat.Mode][]chat.Message{},
		Credentials:   chat.Credentials{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Conversations = make(map[chat.Mode][]chat.Message, len(s.Conversations))
	for mode, msgs := range s.Conversations {
		out.Conversations[mode] = append([]chat.Message(nil), msgs...)
	}
	out.Credentials = s.Credentials.Clone()
	if s.InFlight != nil {
		inflight := *s.InFlight
		out.InFlight = &inflight
	}
	return out
}

// Active returns the active mode's committed messages.
func (s State) Active() []chat.Message {
	return s.Conversations[s.Mode]
}

type Action interface {
	isAction()
}

// Submitted appends Message to the active conversation and opens a new
// in-flight reply with id ReplyID.
type Submitted struct {
	Message chat.Message
	ReplyID string
}

type ChunkReceived struct {
	Generation uint64
	Text       string
	At         time.Time
}

type StreamFinished struct {
	Generation uint64
}

type StreamFailed struct {
	Generation uint64
	Message    string
}

type ModeSwitched struct {
	Mode chat.Mode
}

type Cleared struct{}

type CredentialsLoaded struct {
	Credentials chat.Credentials
}

// CredentialSaved stores Secret for Provider and activates it. An empty
// secret only closes the credential prompt.
type CredentialSaved struct {
	Provider chat.Provider
	Secret   string
}

type CredentialRequested struct {
	Provider chat.Provider
}

type ProviderSelected struct {
	Provider chat.Provider
}

type ErrorDismissed struct{}

type VoiceToggled struct {
	Enabled bool
}

func (Submitted) isAction() {}
func (ChunkReceived) isAction() {}
func (StreamFinished) isAction() {}
func (StreamFailed) isAction() {}
func (ModeSwitched) isAction() {}
func (Cleared) isAction() {}
func (CredentialsLoaded) isAction() {}
func (CredentialSaved) isAction() {}
func (CredentialRequested) isAction() {}
func (ProviderSelected) isAction() {}
func (ErrorDismissed) isAction() {}
func (VoiceToggled) isAction() {}

// Reduce applies a to s and returns the new state. It has no side effects.
func Reduce(s State, a Action) State {
	next := s.Clone()

	switch a := a.(type) {
	case Submitted:
		if s.Pending {
			return s
		}
		next.Conversations[s.Mode] = append(next.Conversations[s.Mode], a.Message)
		next.Generation++
		next.InFlight = &InFlight{
			Generation: next.Generation,
			Mode:       s.Mode,
			Provider:   s.Provider,
			Reply:      chat.Message{ID: a.ReplyID, Role: chat.RoleAssistant},
		}
		next.Pending = true
		next.Error = ""

	case ChunkReceived:
		if !s.current(a.Generation) {
			return s
		}
		if next.InFlight.Reply.CreatedAt.IsZero() {
			next.InFlight.Reply.CreatedAt = a.At
		}
		next.InFlight.Reply.Content += a.Text

	case StreamFinished:
		if !s.current(a.Generation) {
			return s
		}
		if reply := next.InFlight.Reply; reply.Content != "" {
			mode := next.InFlight.Mode
			next.Conversations[mode] = append(next.Conversations[mode], reply)
		}
		next.InFlight = nil
		next.Pending = false
		next.Error = ""

	case StreamFailed:
		if !s.current(a.Generation) {
			return s
		}
		message, prompt := withCredentialHint(a.Message, s.InFlight.Provider)
		next.Error = message
		if prompt {
			next.CredentialPrompt = true
		}
		next.InFlight = nil
		next.Pending = false

	case ModeSwitched:
		if a.Mode == s.Mode {
			return s
		}
		next.Mode = a.Mode
		next.Error = ""

	case Cleared:
		delete(next.Conversations, s.Mode)
		if s.InFlight != nil && s.InFlight.Mode == s.Mode {
			next.InFlight = nil
			next.Pending = false
			next.Generation++
		}
		next.Error = ""

	case CredentialsLoaded:
		next.Credentials = a.Credentials.Clone()

	case CredentialSaved:
		next.CredentialPrompt = false
		secret := strings.TrimSpace(a.Secret)
		if secret == "" {
			return next
		}
		if a.Provider.RequiresAPIKey() {
			next.Credentials[a.Provider] = secret
		}
		next.Provider = a.Provider
		next.Error = ""

	case CredentialRequested:
		next.CredentialPrompt = true

	case ProviderSelected:
		next.Provider = a.Provider
		next.CredentialPrompt = false

	case ErrorDismissed:
		next.Error = ""

	case VoiceToggled:
		next.VoiceEnabled = a.Enabled

	default:
		return s
	}
	return next
}

func (s State) current(generation uint64) bool {
	return s.InFlight != nil && s.InFlight.Generation == generation
}

func withCredentialHint(message string, provider chat.Provider) (string, bool) {
	if strings.Contains(message, "API configuration error") || strings.Contains(message, "API key") {
		return fmt.Sprintf("%s Please set up your %s API key.", message, provider.Info().Name), true
	}
	return message, false
}
