package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/storyweave/adventure/pkg/i18n"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// LLM settings
	LLMProvider     string
	ModelName       string
	SummaryModel    string // cheaper model for history summarization
	GeminiAPIKey    string
	AnthropicAPIKey string

	// Storage
	RedisURL string

	DefaultLang i18n.Language
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		ModelName:       getEnv("MODEL_NAME", "gemini-2.5-flash"),
		SummaryModel:    getEnv("SUMMARY_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		DefaultLang:     i18n.Match(getEnv("DEFAULT_LANG", "ko")),
	}

	switch cfg.LLMProvider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

// Credential returns the API key for the configured provider.
func (c *Config) Credential() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
