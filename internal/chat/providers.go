package chat

// Provider identifies the completion vendor serving a request.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"

	DefaultProvider = ProviderGroq
)

type ProviderInfo struct {
	Name           string
	Description    string
	RequiresAPIKey bool
}

var providerOrder = []Provider{ProviderGroq, ProviderGemini, ProviderOpenAI, ProviderClaude}

var providerCatalogue = map[Provider]ProviderInfo{
	ProviderGroq:   {Name: "Groq", Description: "Fast and efficient LLM"},
	ProviderGemini: {Name: "Gemini", Description: "Google's multimodal AI"},
	ProviderOpenAI: {Name: "OpenAI", Description: "Advanced language models", RequiresAPIKey: true},
	ProviderClaude: {Name: "Claude", Description: "Anthropic's helpful assistant", RequiresAPIKey: true},
}

func Providers() []Provider {
	out := make([]Provider, len(providerOrder))
	copy(out, providerOrder)
	return out
}

func (p Provider) Valid() bool {
	_, ok := providerCatalogue[p]
	return ok
}

func (p Provider) Info() ProviderInfo {
	return providerCatalogue[p]
}

func (p Provider) RequiresAPIKey() bool {
	return providerCatalogue[p].RequiresAPIKey
}

// ParseProvider maps an optional wire value to a Provider, defaulting to groq.
func ParseProvider(s string) (Provider, bool) {
	if s == "" {
		return DefaultProvider, true
	}
	p := Provider(s)
	return p, p.Valid()
}

// Credentials maps a provider to the user-supplied secret for it.
// Providers that do not require a key never hold an entry.
type Credentials map[Provider]string

func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// For returns the stored secret for p, or "" when p needs none.
func (c Credentials) For(p Provider) string {
	if !p.RequiresAPIKey() {
		return ""
	}
	return c[p]
}
