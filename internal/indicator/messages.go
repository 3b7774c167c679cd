package indicator

import (
	"os"
	"strings"

	"github.com/rbright/interpret/internal/fault"
)

// messages are the notification summaries shown on the desktop.
type messages struct {
	listening        string
	stopping         string
	unavailable      string
	recognitionError string
	translationError string
}

var catalog = map[string]messages{
	"en": {
		listening:        "Listening…",
		stopping:         "Finishing…",
		unavailable:      "Speech recognition unavailable",
		recognitionError: "Speech recognition error",
		translationError: "Translation error occurred. Please try again.",
	},
	"es": {
		listening:        "Escuchando…",
		stopping:         "Finalizando…",
		unavailable:      "Reconocimiento de voz no disponible",
		recognitionError: "Error de reconocimiento de voz",
		translationError: "Se produjo un error de traducción. Inténtelo de nuevo.",
	},
}

// messagesFromEnv picks the catalog for LC_MESSAGES, then LANG.
func messagesFromEnv() messages {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return messagesFor(value)
		}
	}
	return catalog["en"]
}

// messagesFor maps a POSIX locale such as "es_MX.UTF-8" to its catalog,
// defaulting to English.
func messagesFor(locale string) messages {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "_.-@"); i >= 0 {
		lang = lang[:i]
	}
	if m, ok := catalog[lang]; ok {
		return m
	}
	return catalog["en"]
}

func (m messages) forKind(kind fault.Kind) string {
	switch kind {
	case fault.UnsupportedEnvironment:
		return m.unavailable
	case fault.TranslationFailed, fault.InvalidResponse:
		return m.translationError
	default:
		return m.recognitionError
	}
}
