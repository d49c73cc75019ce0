package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Cybonto/violentutf-routesync/internal/models"
)

// maxGenericBlocks bounds the numbered OPENAPI_{i}_* scan.
const maxGenericBlocks = 10

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModels     = "gpt-4,gpt-3.5-turbo"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModels  = "claude-3-5-sonnet,claude-3-haiku"
	defaultOllamaEndpoint   = "http://localhost:11434"
	defaultOllamaModels     = "llama3"
)

// LoadProviders scans the built-in provider blocks and the numbered generic
// blocks into the typed list the rest of the run iterates. Variable-name
// indirection happens exactly once, here.
func LoadProviders(v *viper.Viper) []models.ProviderConfig {
	providers := []models.ProviderConfig{
		{
			ID:        "openai",
			Name:      "OpenAI",
			Kind:      models.ProviderKindBuiltin,
			Enabled:   getBool(v, "OPENAI_ENABLED"),
			BaseURL:   getString(v, "OPENAI_BASE_URL", defaultOpenAIBaseURL),
			AuthType:  models.AuthTypeBearer,
			AuthToken: getString(v, "OPENAI_API_KEY", ""),
			Models:    splitModels(getString(v, "OPENAI_MODELS", defaultOpenAIModels)),
		},
		{
			ID:        "anthropic",
			Name:      "Anthropic",
			Kind:      models.ProviderKindBuiltin,
			Enabled:   getBool(v, "ANTHROPIC_ENABLED"),
			BaseURL:   getString(v, "ANTHROPIC_BASE_URL", defaultAnthropicBaseURL),
			AuthType:  models.AuthTypeAPIKey,
			AuthToken: getString(v, "ANTHROPIC_API_KEY", ""),
			Models:    splitModels(getString(v, "ANTHROPIC_MODELS", defaultAnthropicModels)),
		},
		{
			ID:       "ollama",
			Name:     "Ollama",
			Kind:     models.ProviderKindBuiltin,
			Enabled:  getBool(v, "OLLAMA_ENABLED"),
			BaseURL:  getString(v, "OLLAMA_ENDPOINT", defaultOllamaEndpoint),
			AuthType: models.AuthTypeNone,
			Models:   splitModels(getString(v, "OLLAMA_MODELS", defaultOllamaModels)),
		},
	}

	for i := 1; i <= maxGenericBlocks; i++ {
		key := func(suffix string) string {
			return fmt.Sprintf("OPENAPI_%d_%s", i, suffix)
		}
		if !getBool(v, key("ENABLED")) {
			continue
		}
		providers = append(providers, models.ProviderConfig{
			ID:      getString(v, key("ID"), ""),
			Name:    getString(v, key("NAME"), ""),
			Kind:    models.ProviderKindGeneric,
			Enabled: true,
			BaseURL: getString(v, key("BASE_URL"), ""),
			// The raw value is kept even when unknown; the compiler falls
			// back to bearer with a warning rather than dropping the route.
			AuthType:  models.AuthType(getString(v, key("AUTH_TYPE"), string(models.AuthTypeBearer))),
			AuthToken: getString(v, key("AUTH_TOKEN"), ""),
			Ordinal:   i,
			SpecPath:  getString(v, key("SPEC_PATH"), ""),
		})
	}

	return providers
}

func getString(v *viper.Viper, key, fallback string) string {
	_ = v.BindEnv(key)
	if val := strings.TrimSpace(v.GetString(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(v *viper.Viper, key string) bool {
	_ = v.BindEnv(key)
	return v.GetBool(key)
}

func splitModels(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
