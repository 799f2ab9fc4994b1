package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"ncc.gov.ng/nora/internal/chat"
)

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tier
	}{
		{"no keywords", "What does NCC regulate?", TierFast},
		{"reasoning keyword", "Please analyze my budget", TierReasoning},
		{"creative keyword", "Brainstorm names for a cafe", TierCreative},
		{"case insensitive", "COMPARE these two plans", TierReasoning},
		{"creative wins over reasoning", "analyze and write a story", TierCreative},
		{"substring match", "I have a problematic router", TierReasoning},
		{"empty", "", TierFast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTier(DefaultTierRules, tt.text))
		})
	}
}

func TestSelectTierCustomRules(t *testing.T) {
	rules := []TierRule{
		{Tier: TierCreative, Keywords: []string{"poem"}},
		{Tier: TierReasoning, Keywords: []string{"proof"}},
	}
	// Later rules overwrite earlier matches.
	assert.Equal(t, TierReasoning, SelectTier(rules, "a poem with a proof"))
}

func TestTemperature(t *testing.T) {
	assert.InDelta(t, 0.8, Temperature(TierCreative, chat.ModeBFF), 1e-6)
	assert.InDelta(t, 0.8, Temperature(TierCreative, chat.ModeGeneral), 1e-6)
	assert.InDelta(t, 0.9, Temperature(TierFast, chat.ModeBFF), 1e-6)
	assert.InDelta(t, 0.9, Temperature(TierReasoning, chat.ModeBFF), 1e-6)
	assert.InDelta(t, 0.7, Temperature(TierFast, chat.ModeWellness), 1e-6)
}

func TestModelTable(t *testing.T) {
	table := NewModelTable(map[string]map[string]string{
		"groq": {"fast": "llama-3.1-8b-instant", "creative": ""},
	})

	model, ok := table.Model(chat.ProviderGroq, TierFast)
	assert.True(t, ok)
	assert.Equal(t, "llama-3.1-8b-instant", model)

	_, ok = table.Model(chat.ProviderGroq, TierCreative)
	assert.False(t, ok, "empty model names are treated as missing")

	_, ok = table.Model(chat.ProviderClaude, TierFast)
	assert.False(t, ok)
}
