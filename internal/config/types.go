// Package config resolves, parses, validates, and defaults interpret configuration.
package config

import "strings"

const (
	RecognizerGoogle   = "google"
	RecognizerDeepgram = "deepgram"

	TranslatorGemini = "gemini"
	TranslatorOpenAI = "openai"
)

// Config is the fully materialized runtime configuration used by interpret.
type Config struct {
	LogLevel    string
	EnvFile     string
	Audio       AudioConfig
	Recognizer  RecognizerConfig
	Translation TranslationConfig
	Playback    PlaybackConfig
	Indicator   IndicatorConfig
	Server      ServerConfig
	Vocab       VocabConfig
	Debug       DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// RecognizerConfig selects the streaming speech backend and its request hints.
type RecognizerConfig struct {
	Backend              string
	LanguageCode         string
	Model                string
	AutomaticPunctuation bool
	Google               GoogleConfig
	Deepgram             DeepgramConfig
}

type GoogleConfig struct {
	Endpoint        string
	CredentialsFile string
	Insecure        bool
}

type DeepgramConfig struct {
	Endpoint string
	Model    string
}

// TranslationConfig controls the translation backend and settle timing.
type TranslationConfig struct {
	Backend         string
	TargetLanguage  string
	Model           string
	BaseURL         string
	Domain          string
	DebounceMS      int
	TimeoutMS       int
	AbortSuperseded bool
	Temperature     float64
	TopP            float64
	TopK            int
}

// ResolvedModel returns Model or the default model of Backend.
func (t TranslationConfig) ResolvedModel() string {
	if model := strings.TrimSpace(t.Model); model != "" {
		return model
	}
	switch strings.ToLower(strings.TrimSpace(t.Backend)) {
	case TranslatorOpenAI:
		return "gpt-4o-mini"
	default:
		return "gemini-1.5-flash"
	}
}

// PlaybackConfig controls text-to-speech playback of either pane.
type PlaybackConfig struct {
	Enable bool
	Model  string
	Voice  string
}

// IndicatorConfig controls desktop notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool
	SoundEnable    bool
	DesktopAppName string
	ErrorTimeoutMS int
}

// ServerConfig controls the optional web gateway. An empty Listen disables it.
type ServerConfig struct {
	Listen string
}

// VocabConfig controls enabled speech phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableGRPCDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to recognizers.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
