package chat

// Mode is a topical persona. Each mode keeps its own conversation.
type Mode string

const (
	ModeGeneral      Mode = "general"
	ModeProductivity Mode = "productivity"
	ModeWellness     Mode = "wellness"
	ModeLearning     Mode = "learning"
	ModeCreative     Mode = "creative"
	ModeBFF          Mode = "bff"

	DefaultMode = ModeGeneral
)

type ModeInfo struct {
	Label        string
	Description  string
	Placeholder  string
	QuickActions []string
}

var modeOrder = []Mode{ModeGeneral, ModeProductivity, ModeWellness, ModeLearning, ModeCreative, ModeBFF}

var modeCatalogue = map[Mode]ModeInfo{
	ModeGeneral: {
		Label:       "NORA",
		Description: "NCC Online Response AI",
		Placeholder: "Ask me anything...",
		QuickActions: []string{
			"Understand NCC consumer rights",
			"How to file a complaint",
			"Get help with SIM registration issues",
			"Learn about NCC's telecom regulations",
		},
	},
	ModeProductivity: {Label: "Productivity", Description: "Planning and getting things done", Placeholder: "What are you working on?"},
	ModeWellness:     {Label: "Wellness", Description: "Wellbeing and balance", Placeholder: "How are you feeling?"},
	ModeLearning:     {Label: "Learning", Description: "Explanations and study help", Placeholder: "What would you like to learn?"},
	ModeCreative:     {Label: "Creative", Description: "Ideas and writing", Placeholder: "What shall we create?"},
	ModeBFF:          {Label: "BFF", Description: "Casual conversation", Placeholder: "What's up?"},
}

// Modes returns every mode in display order.
func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

func (m Mode) Valid() bool {
	_, ok := modeCatalogue[m]
	return ok
}

func (m Mode) Info() ModeInfo {
	return modeCatalogue[m]
}

// ParseMode maps an optional wire value to a Mode, defaulting to general.
func ParseMode(s string) (Mode, bool) {
	if s == "" {
		return DefaultMode, true
	}
	m := Mode(s)
	return m, m.Valid()
}
