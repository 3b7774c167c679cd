package config

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/rbright/interpret/internal/languages"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Recognizer.Backend)) {
	case RecognizerGoogle:
		if cfg.Recognizer.Google.Insecure && strings.TrimSpace(cfg.Recognizer.Google.Endpoint) == "" {
			return nil, fmt.Errorf("recognizer.google.endpoint must be set when recognizer.google.insecure=true")
		}
	case RecognizerDeepgram:
		endpoint := strings.TrimSpace(cfg.Recognizer.Deepgram.Endpoint)
		if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
			return nil, fmt.Errorf("recognizer.deepgram.endpoint must be a ws:// or wss:// URL")
		}
	default:
		return nil, fmt.Errorf("recognizer.backend must be one of: google, deepgram")
	}
	if _, err := languages.Resolve(cfg.Recognizer.LanguageCode); err != nil {
		return nil, fmt.Errorf("recognizer.language_code: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Translation.Backend)) {
	case TranslatorGemini, TranslatorOpenAI:
	default:
		return nil, fmt.Errorf("translation.backend must be one of: gemini, openai")
	}
	if _, err := languages.Resolve(cfg.Translation.TargetLanguage); err != nil {
		return nil, fmt.Errorf("translation.target_language: %w", err)
	}
	if cfg.Translation.DebounceMS <= 0 {
		return nil, fmt.Errorf("translation.debounce_ms must be > 0")
	}
	if cfg.Translation.TimeoutMS < 0 {
		return nil, fmt.Errorf("translation.timeout_ms must be >= 0")
	}
	if cfg.Translation.Temperature < 0 || cfg.Translation.Temperature > 2 {
		return nil, fmt.Errorf("translation.temperature must be within [0, 2]")
	}
	if cfg.Translation.TopP < 0 || cfg.Translation.TopP > 1 {
		return nil, fmt.Errorf("translation.top_p must be within [0, 1]")
	}
	if cfg.Translation.TopK < 0 {
		return nil, fmt.Errorf("translation.top_k must be >= 0")
	}
	if cfg.Translation.TimeoutMS == 0 {
		warnings = append(warnings, Warning{Message: "translation.timeout_ms=0 disables the translation timeout"})
	}

	if cfg.Playback.Enable && strings.TrimSpace(cfg.Playback.Voice) == "" {
		return nil, fmt.Errorf("playback.voice must not be empty when playback.enable=true")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if listen := strings.TrimSpace(cfg.Server.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("server.listen must be host:port: %w", err)
		}
	}
	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}

	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

// BuildSpeechPhrases merges enabled vocab sets into deterministic ASR phrase payloads.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	enabledSets := cfg.Vocab.GlobalSets
	if len(enabledSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range enabledSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if existing, exists := selected[phrase]; exists {
				if set.Boost > existing.boost {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
					selected[phrase] = candidate{boost: set.Boost, from: name}
				}
				continue
			}
			selected[phrase] = candidate{boost: set.Boost, from: name}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}

	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Phrase == phrases[j].Phrase {
			return phrases[i].Boost < phrases[j].Boost
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	return phrases, warnings, nil
}
