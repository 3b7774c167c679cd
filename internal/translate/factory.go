package translate

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Model    string
	BaseURL  string
	APIKey   string
	Settings Settings
}

// New builds the configured translator.
func New(ctx context.Context, cfg Config) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "gemini":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Settings: cfg.Settings})
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Settings: cfg.Settings})
	default:
		return nil, fmt.Errorf("unknown translation backend %q", cfg.Backend)
	}
}
