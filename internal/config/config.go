package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the gateway server configuration.
type Config struct {
	HTTPPort string
	LogLevel string

	GroqAPIKey      string
	GroqBaseURL     string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	// Models maps provider -> tier -> model name.
	Models map[string]map[string]string

	MaxTokens      int
	MaxDuration    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// ClientConfig is the terminal client configuration.
type ClientConfig struct {
	LogLevel      string
	GatewayURL    string
	StorageDriver string
	StoragePath   string
	Mode          string
	Provider      string
}

var defaultModels = map[string]map[string]string{
	"groq": {
		"fast":      "llama-3.1-8b-instant",
		"reasoning": "llama-3.3-70b-versatile",
		"creative":  "qwen/qwen3-32b",
	},
	"gemini": {
		"fast":      "gemini-2.0-flash",
		"reasoning": "gemini-2.0-flash",
		"creative":  "gemini-2.0-flash",
	},
	"openai": {
		"fast":      "gpt-3.5-turbo",
		"reasoning": "gpt-4o",
		"creative":  "gpt-4-turbo",
	},
	"claude": {
		"fast":      "claude-3-haiku-20240307",
		"reasoning": "claude-3-opus-20240229",
		"creative":  "claude-3-sonnet-20240229",
	},
}

func newViper() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("NORA_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// LoadConfig reads the gateway configuration from .env, the environment and
// an optional config file named by NORA_CONFIG. Missing provider keys are not
// an error here; requests for an unconfigured provider fail at request time.
func LoadConfig() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("nora.max_tokens", 1000)
	v.SetDefault("nora.max_duration", 60*time.Second)
	v.SetDefault("nora.rate_limit_rps", 0)
	v.SetDefault("nora.rate_limit_burst", 10)

	models := make(map[string]map[string]string, len(defaultModels))
	for provider, tiers := range defaultModels {
		models[provider] = make(map[string]string, len(tiers))
		for tier, model := range tiers {
			key := fmt.Sprintf("nora.models.%s.%s", provider, tier)
			v.SetDefault(key, model)
			models[provider][tier] = v.GetString(key)
		}
	}

	cfg := &Config{
		HTTPPort:        v.GetString("http_port"),
		LogLevel:        v.GetString("log_level"),
		GroqAPIKey:      v.GetString("groq_api_key"),
		GroqBaseURL:     v.GetString("groq_base_url"),
		GeminiAPIKey:    v.GetString("google_generative_ai_api_key"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		Models:          models,
		MaxTokens:       v.GetInt("nora.max_tokens"),
		MaxDuration:     v.GetDuration("nora.max_duration"),
		RateLimitRPS:    v.GetFloat64("nora.rate_limit_rps"),
		RateLimitBurst:  v.GetInt("nora.rate_limit_burst"),
	}

	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("NORA_MAX_TOKENS must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.MaxDuration <= 0 {
		return nil, fmt.Errorf("NORA_MAX_DURATION must be positive, got %s", cfg.MaxDuration)
	}
	return cfg, nil
}

// LoadClientConfig reads the terminal client configuration.
func LoadClientConfig() (*ClientConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	v.SetDefault("log_level", "INFO")
	v.SetDefault("nora.gateway_url", "http://localhost:8080")
	v.SetDefault("nora.storage_driver", "sqlite")
	v.SetDefault("nora.storage_path", filepath.Join(home, ".nora", "nora.db"))
	v.SetDefault("nora.mode", "general")
	v.SetDefault("nora.provider", "groq")

	cfg := &ClientConfig{
		LogLevel:      v.GetString("log_level"),
		GatewayURL:    strings.TrimRight(v.GetString("nora.gateway_url"), "/"),
		StorageDriver: v.GetString("nora.storage_driver"),
		StoragePath:   v.GetString("nora.storage_path"),
		Mode:          v.GetString("nora.mode"),
		Provider:      v.GetString("nora.provider"),
	}

	switch cfg.StorageDriver {
	case "sqlite", "bolt":
	default:
		return nil, fmt.Errorf("unsupported NORA_STORAGE_DRIVER %q (want sqlite or bolt)", cfg.StorageDriver)
	}
	return cfg, nil
}
