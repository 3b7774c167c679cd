package indicator

import (
	"testing"

	"github.com/rbright/interpret/internal/fault"
	"github.com/stretchr/testify/require"
)

func TestMessagesForLocale(t *testing.T) {
	require.Equal(t, "Listening…", messagesFor("en_US.UTF-8").listening)
	require.Equal(t, "Escuchando…", messagesFor("es_MX.UTF-8").listening)
	require.Equal(t, "Escuchando…", messagesFor("ES").listening)
	require.Equal(t, "Listening…", messagesFor("fr_FR.UTF-8").listening)
	require.Equal(t, "Listening…", messagesFor("C").listening)
}

func TestMessagesFromEnvPrefersLCAll(t *testing.T) {
	t.Setenv("LC_ALL", "es_ES.UTF-8")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "en_US.UTF-8")
	require.Equal(t, "Finalizando…", messagesFromEnv().stopping)

	t.Setenv("LC_ALL", "")
	require.Equal(t, "Finishing…", messagesFromEnv().stopping)
}

func TestMessagesForKind(t *testing.T) {
	msg := catalog["en"]
	require.Equal(t, msg.unavailable, msg.forKind(fault.UnsupportedEnvironment))
	require.Equal(t, msg.recognitionError, msg.forKind(fault.RecognitionFailed))
	require.Equal(t, msg.translationError, msg.forKind(fault.TranslationFailed))
	require.Equal(t, msg.translationError, msg.forKind(fault.InvalidResponse))
}
