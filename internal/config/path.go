package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "interpret"

// configNames are tried in order inside the config directory. The first is
// also the path reported when none exist.
var configNames = []string{"config.jsonc", "config.yaml", "config.yml"}

// ResolvePath returns the explicit path, or the first existing config file
// under $XDG_CONFIG_HOME/interpret (falling back to ~/.config/interpret).
func ResolvePath(explicit string) (string, error) {
	return resolvePath(explicit, os.LookupEnv)
}

func resolvePath(explicit string, lookup LookupFunc) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir(lookup)
	if err != nil {
		return "", err
	}

	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return filepath.Join(dir, configNames[0]), nil
}

func configDir(lookup LookupFunc) (string, error) {
	if xdg, ok := lookup("XDG_CONFIG_HOME"); ok && strings.TrimSpace(xdg) != "" {
		return filepath.Join(strings.TrimSpace(xdg), appDir), nil
	}
	if home, ok := lookup("HOME"); ok && strings.TrimSpace(home) != "" {
		return filepath.Join(strings.TrimSpace(home), ".config", appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", appDir), nil
}
