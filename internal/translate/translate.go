// Package translate calls remote translation services.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/languages"
)

// ErrInvalidResponse reports a service payload without the expected translation text.
var ErrInvalidResponse = errors.New("translation response missing text")

// Request is one translation call.
type Request struct {
	Text   string
	Source languages.Language
	Target languages.Language
}

// Translator performs one blocking translation call. Implementations must honor ctx cancellation.
type Translator interface {
	Name() string
	Translate(context.Context, Request) (string, error)
}

// Settings are the generation parameters shared by all backends.
type Settings struct {
	Domain      string
	Temperature float32
	TopP        float32
	TopK        int
}

// DefaultSettings keeps generation near-deterministic.
func DefaultSettings() Settings {
	return Settings{
		Domain:      "medical",
		Temperature: 0.1,
		TopP:        0.1,
		TopK:        1,
	}
}

// Prompt renders the translation-only instruction for req.
func Prompt(req Request, domain string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate this text from %s to %s.\n", displayName(req.Source), displayName(req.Target))
	if domain = strings.TrimSpace(domain); domain != "" {
		fmt.Fprintf(&b, "Also ensure %s terminologies are translated effectively.\n", domain)
	}
	fmt.Fprintf(&b, "Only respond with the translation, no additional text: %q", req.Text)
	return b.String()
}

func displayName(lang languages.Language) string {
	if name := strings.TrimSpace(lang.Name); name != "" {
		return name
	}
	return lang.Code
}

// invalidResponse classifies a malformed payload.
func invalidResponse(format string, args ...any) error {
	return fault.New(fault.InvalidResponse, fmt.Errorf("%w: %s", ErrInvalidResponse, fmt.Sprintf(format, args...)))
}

// cleanTranslation trims the model output and rejects empty text.
func cleanTranslation(raw string, backend string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", invalidResponse("%s returned empty text", backend)
	}
	return text, nil
}
