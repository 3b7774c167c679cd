package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, applies environment overrides, and validates
// the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	return LoadWithEnv(explicitPath, os.LookupEnv)
}

// LoadWithEnv is Load with an injected environment lookup.
func LoadWithEnv(explicitPath string, lookup LookupFunc) (Loaded, error) {
	resolvedPath, err := resolvePath(explicitPath, lookup)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	var warnings []Warning
	exists := true

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		exists = false
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		parsed, parseWarnings, err := decode(string(content), cfg)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		cfg = parsed
		warnings = append(warnings, parseWarnings...)
	}

	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Loaded{}, err
	}

	validated, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid config %q: %w", resolvedPath, err)
	}
	warnings = append(warnings, validated...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}
