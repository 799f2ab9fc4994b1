package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ncc.gov.ng/nora/internal/chat"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"messages":[{"role":"user","content":"hi"}],"mode":"bff","provider":"openai","apiKey":"sk-test"}`))
	require.NoError(t, err)
	assert.Equal(t, chat.ModeBFF, env.Mode)
	assert.Equal(t, chat.ProviderOpenAI, env.Provider)
	assert.Equal(t, "sk-test", env.APIKey)
	require.Len(t, env.Messages, 1)
	assert.Equal(t, "hi", env.Messages[0].Content)
}

func TestDecodeEnvelopeDefaults(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, chat.ModeGeneral, env.Mode)
	assert.Equal(t, chat.ProviderGroq, env.Provider)
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{not json`, InvalidFormatMessage},
		{"empty body", ``, InvalidFormatMessage},
		{"null body", `null`, InvalidFormatMessage},
		{"array body", `[1,2]`, InvalidFormatMessage},
		{"missing messages", `{"mode":"general"}`, InvalidMessagesMessage},
		{"empty messages", `{"messages":[]}`, InvalidMessagesMessage},
		{"messages not array", `{"messages":"hello"}`, InvalidMessagesMessage},
		{"null messages", `{"messages":null}`, InvalidMessagesMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.body))
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.want, reqErr.Message)
		})
	}
}

func TestDecodeEnvelopeRejectsUnknownValues(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"messages":[{"role":"system","content":"x"}]}`))
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "message 0")

	_, err = DecodeEnvelope([]byte(`{"messages":[{"role":"user","content":"x"}],"mode":"party"}`))
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "party")

	_, err = DecodeEnvelope([]byte(`{"messages":[{"role":"user","content":"x"}],"provider":"mistral"}`))
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "mistral")
}
