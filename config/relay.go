package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RelayConfig configures cmd/relay. It is read from the environment,
// optionally seeded from a .env file.
type RelayConfig struct {
	Port           string
	Provider       string
	OpenAIAPIKey   string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	GeminiAPIKey   string
	GeminiModel    string
	MaxTokens      int
	Temperature    float64
	RateLimit      int
	RateWindow     time.Duration
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{
		Port:           getEnv("PORT", "5050"),
		Provider:       strings.ToLower(getEnv("PROVIDER", "openai")),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel: getEnv("ANTHROPIC_MODEL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", ""),
		MaxTokens:      getEnvInt("MAX_TOKENS", 30),
		Temperature:    getEnvFloat("TEMPERATURE", 0.7),
		RateLimit:      getEnvInt("RATE_LIMIT", 60),
		RateWindow:     time.Minute,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the selected provider has a key.
func (c *RelayConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be > 0")
	}
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider openai")
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider anthropic")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider gemini")
		}
	default:
		return fmt.Errorf("PROVIDER %q: want openai, anthropic or gemini", c.Provider)
	}
	return nil
}

func (c *RelayConfig) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
