package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Secrets holds credentials read from the environment or dotenv files.
type Secrets struct {
	GeminiAPIKey      string
	OpenAIAPIKey      string
	DeepgramAPIKey    string
	GoogleCredentials string
}

// LoadSecrets reads credentials from lookup, falling back to envFile and
// ./.env. Set variables always win over file values. A missing ./.env is
// ignored; a missing envFile is an error.
func LoadSecrets(envFile string, lookup LookupFunc) (Secrets, error) {
	fileValues := map[string]string{}

	if path := strings.TrimSpace(envFile); path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return Secrets{}, fmt.Errorf("read env_file %q: %w", path, err)
		}
		fileValues = values
	}

	if values, err := godotenv.Read(".env"); err == nil {
		for key, value := range values {
			if _, ok := fileValues[key]; !ok {
				fileValues[key] = value
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Secrets{}, fmt.Errorf("read .env: %w", err)
	}

	get := func(keys ...string) string {
		for _, key := range keys {
			if lookup != nil {
				if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
					return strings.TrimSpace(value)
				}
			}
		}
		for _, key := range keys {
			if value := strings.TrimSpace(fileValues[key]); value != "" {
				return value
			}
		}
		return ""
	}

	return Secrets{
		GeminiAPIKey:      get("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		OpenAIAPIKey:      get("OPENAI_API_KEY"),
		DeepgramAPIKey:    get("DEEPGRAM_API_KEY"),
		GoogleCredentials: get("GOOGLE_APPLICATION_CREDENTIALS"),
	}, nil
}
