package config

import (
	"fmt"
	"strings"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

const (
	EnvSourceLanguage = "INTERPRET_SOURCE_LANGUAGE"
	EnvTargetLanguage = "INTERPRET_TARGET_LANGUAGE"
	EnvListen         = "INTERPRET_LISTEN"
	EnvLogLevel       = "INTERPRET_LOG_LEVEL"
)

// ApplyEnv overlays INTERPRET_* variables onto cfg. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if lookup == nil {
		return nil
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{EnvSourceLanguage, &cfg.Recognizer.LanguageCode},
		{EnvTargetLanguage, &cfg.Translation.TargetLanguage},
		{EnvListen, &cfg.Server.Listen},
		{EnvLogLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		if value, ok := lookup(o.key); ok && strings.TrimSpace(value) != "" {
			*o.dst = strings.TrimSpace(value)
		}
	}
	return nil
}
