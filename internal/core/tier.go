package core

import (
	"strings"

	"ncc.gov.ng/nora/internal/chat"
)

// Tier decides which model and temperature serve a request.
type Tier string

const (
	TierFast      Tier = "fast"
	TierReasoning Tier = "reasoning"
	TierCreative  Tier = "creative"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierReasoning, TierCreative:
		return true
	}
	return false
}

type TierRule struct {
	Tier     Tier
	Keywords []string
}

// DefaultTierRules is evaluated top to bottom and every matching rule
// overwrites the previous result, so creative wins over reasoning.
var DefaultTierRules = []TierRule{
	{Tier: TierReasoning, Keywords: []string{"analyze", "compare", "plan", "strategy", "decision", "problem"}},
	{Tier: TierCreative, Keywords: []string{"creative", "brainstorm", "idea", "write", "design", "story"}},
}

const (
	baseTemperature     float32 = 0.7
	creativeTemperature float32 = 0.8
	bffTemperature      float32 = 0.9
)

// SelectTier classifies text with the given rules. The last matching rule wins.
func SelectTier(rules []TierRule, text string) Tier {
	lower := strings.ToLower(text)
	tier := TierFast
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				tier = rule.Tier
				break
			}
		}
	}
	return tier
}

func Temperature(tier Tier, mode chat.Mode) float32 {
	switch {
	case tier == TierCreative:
		return creativeTemperature
	case mode == chat.ModeBFF:
		return bffTemperature
	default:
		return baseTemperature
	}
}

// ModelTable maps provider and tier to an upstream model name.
type ModelTable map[chat.Provider]map[Tier]string

// NewModelTable converts the string-keyed configuration form.
func NewModelTable(raw map[string]map[string]string) ModelTable {
	table := make(ModelTable, len(raw))
	for provider, tiers := range raw {
		p := chat.Provider(provider)
		table[p] = make(map[Tier]string, len(tiers))
		for tier, model := range tiers {
			table[p][Tier(tier)] = model
		}
	}
	return table
}

func (m ModelTable) Model(p chat.Provider, t Tier) (string, bool) {
	model, ok := m[p][t]
	return model, ok && model != ""
}
