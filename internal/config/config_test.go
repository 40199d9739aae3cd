package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/adventure/pkg/i18n"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, i18n.Korean, cfg.DefaultLang)
}

// DEFAULT_LANG is resolved into a Language at load time; downstream code
// consumes cfg.DefaultLang directly, with no second Match pass.
func TestLoadDefaultLang(t *testing.T) {
	tests := []struct {
		env  string
		want i18n.Language
	}{
		{"en", i18n.English},
		{"ja", i18n.Japanese},
		{"jp", i18n.Japanese},
		{"zz-ZZ", i18n.Korean},
	}
	for _, tt := range tests {
		t.Setenv("DEFAULT_LANG", tt.env)
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.DefaultLang, "DEFAULT_LANG=%q", tt.env)
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "venice")
	_, err := Load()
	assert.Error(t, err)
}

func TestCredentialByProvider(t *testing.T) {
	cfg := &Config{
		LLMProvider:     ProviderGemini,
		GeminiAPIKey:    "g-key",
		AnthropicAPIKey: "a-key",
	}
	assert.Equal(t, "g-key", cfg.Credential())

	cfg.LLMProvider = ProviderAnthropic
	assert.Equal(t, "a-key", cfg.Credential())
}
