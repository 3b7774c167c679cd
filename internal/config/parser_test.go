package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseYAMLConfig(t *testing.T) {
	input := `
# comment
audio:
  input: Elgato
recognizer:
  language_code: fr-FR
  google:
    credentials_file: /tmp/creds.json
translation:
  target_language: de-DE
  top_k: 3
vocab:
  global: core, team
  sets:
    core:
      boost: 14
      phrases: [Interpret, tachycardia]
    team:
      boost: 18
      phrases: [Interpret, Gemini]
`

	cfg, warnings, err := Parse(input, Default())
	require.NoError(t, err)
	require.Equal(t, "Elgato", cfg.Audio.Input)
	require.Equal(t, "fr-FR", cfg.Recognizer.LanguageCode)
	require.Equal(t, "/tmp/creds.json", cfg.Recognizer.Google.CredentialsFile)
	require.Equal(t, "de-DE", cfg.Translation.TargetLanguage)
	require.Equal(t, 3, cfg.Translation.TopK)
	require.Equal(t, []string{"core", "team"}, cfg.Vocab.GlobalSets)
	require.NotEmpty(t, warnings, "expected dedupe warning for repeated phrase")

	phrases, _, err := BuildSpeechPhrases(cfg)
	require.NoError(t, err)
	require.Len(t, phrases, 3)
	for _, p := range phrases {
		if p.Phrase == "Interpret" {
			require.Equal(t, float32(18), p.Boost)
		}
	}
}

func TestParseYAMLVocabGlobalList(t *testing.T) {
	cfg, _, err := Parse(`
vocab:
  global:
    - core
  sets:
    core:
      phrases: [one]
`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"core"}, cfg.Vocab.GlobalSets)
}

func TestParseYAMLUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("recognizer:\n  riva_grpc: 127.0.0.1:50051\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "not found")
}

func TestParseYAMLLineNumberOnSyntaxError(t *testing.T) {
	_, _, err := Parse("audio:\n\tinput: a\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseYAMLRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("log_level: info\n---\nlog_level: debug\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple YAML documents")
}

func TestParseOpenAITopKWarning(t *testing.T) {
	_, warnings, err := Parse("translation:\n  backend: openai\n  top_k: 5\n", Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "top_k is ignored")
}

func TestParseValidatesResult(t *testing.T) {
	_, _, err := Parse("translation:\n  target_language: xx-XX\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "translation.target_language")
}

func TestValidateMissingVocabSetReference(t *testing.T) {
	cfg := Default()
	cfg.Vocab.GlobalSets = []string{"missing"}

	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateMaxPhraseLimit(t *testing.T) {
	cfg := Default()
	cfg.Vocab.MaxPhrases = 1
	cfg.Vocab.GlobalSets = []string{"team"}
	cfg.Vocab.Sets = map[string]VocabSet{"team": {
		Name:    "team",
		Boost:   10,
		Phrases: []string{"one", "two"},
	}}

	_, err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds")
}
