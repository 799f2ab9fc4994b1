package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ncc.gov.ng/nora/internal/chat"
)

const (
	InvalidFormatMessage   = "Invalid request format: Request body must be valid JSON"
	InvalidMessagesMessage = "Invalid messages format: Messages must be a non-empty array"
)

type rawEnvelope struct {
	Messages json.RawMessage `json:"messages"`
	Mode     string          `json:"mode"`
	Provider string          `json:"provider"`
	APIKey   string          `json:"apiKey"`
}

// DecodeEnvelope parses and validates a POST /api/chat body. Every failure is
// a *RequestError. Mode and provider are filled with their defaults.
func DecodeEnvelope(body []byte) (chat.Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return chat.Envelope{}, &RequestError{Message: InvalidFormatMessage}
	}
	// "null" unmarshals into the zero value without error.
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return chat.Envelope{}, &RequestError{Message: InvalidFormatMessage}
	}

	var messages []chat.Message
	if len(raw.Messages) == 0 || json.Unmarshal(raw.Messages, &messages) != nil || len(messages) == 0 {
		return chat.Envelope{}, &RequestError{Message: InvalidMessagesMessage}
	}
	for i, m := range messages {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			return chat.Envelope{}, &RequestError{
				Message: fmt.Sprintf("%s (message %d has unsupported role %q)", InvalidMessagesMessage, i, m.Role),
			}
		}
	}

	mode, ok := chat.ParseMode(raw.Mode)
	if !ok {
		return chat.Envelope{}, &RequestError{Message: fmt.Sprintf("Invalid request: unknown mode %q", raw.Mode)}
	}
	provider, ok := chat.ParseProvider(raw.Provider)
	if !ok {
		return chat.Envelope{}, &RequestError{Message: fmt.Sprintf("Invalid request: unknown provider %q", raw.Provider)}
	}

	return chat.Envelope{
		Messages: messages,
		Mode:     mode,
		Provider: provider,
		APIKey:   raw.APIKey,
	}, nil
}
