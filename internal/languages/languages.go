// Package languages holds the closed set of selectable speech languages.
package languages

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported reports a code outside the supported list.
var ErrUnsupported = errors.New("unsupported language")

// Language pairs a BCP-47 code with the display name sent to translators.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supported = []Language{
	{Code: "en-US", Name: "English"},
	{Code: "es-ES", Name: "Spanish"},
	{Code: "fr-FR", Name: "French"},
	{Code: "de-DE", Name: "German"},
	{Code: "it-IT", Name: "Italian"},
	{Code: "ja-JP", Name: "Japanese"},
	{Code: "hi-IN", Name: "Hindi"},
	{Code: "mr-IN", Name: "Marathi"},
}

// All returns a copy of the supported languages in display order.
func All() []Language {
	return append([]Language(nil), supported...)
}

// Lookup resolves a code case-insensitively.
func Lookup(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	for _, lang := range supported {
		if strings.EqualFold(lang.Code, code) {
			return lang, true
		}
	}
	return Language{}, false
}

// Resolve looks up code or returns an error wrapping ErrUnsupported.
func Resolve(code string) (Language, error) {
	lang, ok := Lookup(code)
	if !ok {
		return Language{}, fmt.Errorf("%w %q (supported: %s)", ErrUnsupported, code, Codes())
	}
	return lang, nil
}

// Codes renders the supported codes as a comma-separated list.
func Codes() string {
	codes := make([]string, 0, len(supported))
	for _, lang := range supported {
		codes = append(codes, lang.Code)
	}
	return strings.Join(codes, ", ")
}
