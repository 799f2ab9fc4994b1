package store

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"ncc.gov.ng/nora/internal/chat"
)

// CredentialsKey is the entry holding the provider-to-key map.
const CredentialsKey = "NORA-api-keys"

type CredentialStore struct {
	kv KV
}

func NewCredentialStore(kv KV) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Load returns the stored credentials. A missing or unreadable entry yields
// an empty map; the failure is logged and never returned.
func (s *CredentialStore) Load() chat.Credentials {
	raw, ok, err := s.kv.Get(CredentialsKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read stored API keys")
		return chat.Credentials{}
	}
	if !ok {
		return chat.Credentials{}
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn().Err(err).Msg("Ignoring corrupt stored API keys")
		return chat.Credentials{}
	}

	creds := make(chat.Credentials, len(stored))
	for name, key := range stored {
		p, ok := chat.ParseProvider(name)
		if !ok || name == "" || key == "" {
			log.Debug().Str("provider", name).Msg("Skipping stored API key for unknown provider")
			continue
		}
		if !p.RequiresAPIKey() {
			log.Debug().Str("provider", name).Msg("Skipping stored API key for provider that takes none")
			continue
		}
		creds[p] = key
	}
	return creds
}

// Save overwrites the stored map with creds.
func (s *CredentialStore) Save(creds chat.Credentials) error {
	stored := make(map[string]string, len(creds))
	for p, key := range creds {
		stored[string(p)] = key
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode API keys: %w", err)
	}
	if err := s.kv.Set(CredentialsKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist API keys: %w", err)
	}
	return nil
}
