package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// filePayload mirrors the config file. Nil fields keep the base value.
type filePayload struct {
	LogLevel    *string          `json:"log_level" yaml:"log_level"`
	EnvFile     *string          `json:"env_file" yaml:"env_file"`
	Audio       *fileAudio       `json:"audio" yaml:"audio"`
	Recognizer  *fileRecognizer  `json:"recognizer" yaml:"recognizer"`
	Translation *fileTranslation `json:"translation" yaml:"translation"`
	Playback    *filePlayback    `json:"playback" yaml:"playback"`
	Indicator   *fileIndicator   `json:"indicator" yaml:"indicator"`
	Server      *fileServer      `json:"server" yaml:"server"`
	Vocab       *fileVocab       `json:"vocab" yaml:"vocab"`
	Debug       *fileDebug       `json:"debug" yaml:"debug"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileRecognizer struct {
	Backend              *string       `json:"backend" yaml:"backend"`
	LanguageCode         *string       `json:"language_code" yaml:"language_code"`
	Model                *string       `json:"model" yaml:"model"`
	AutomaticPunctuation *bool         `json:"automatic_punctuation" yaml:"automatic_punctuation"`
	Google               *fileGoogle   `json:"google" yaml:"google"`
	Deepgram             *fileDeepgram `json:"deepgram" yaml:"deepgram"`
}

type fileGoogle struct {
	Endpoint        *string `json:"endpoint" yaml:"endpoint"`
	CredentialsFile *string `json:"credentials_file" yaml:"credentials_file"`
	Insecure        *bool   `json:"insecure" yaml:"insecure"`
}

type fileDeepgram struct {
	Endpoint *string `json:"endpoint" yaml:"endpoint"`
	Model    *string `json:"model" yaml:"model"`
}

type fileTranslation struct {
	Backend         *string  `json:"backend" yaml:"backend"`
	TargetLanguage  *string  `json:"target_language" yaml:"target_language"`
	Model           *string  `json:"model" yaml:"model"`
	BaseURL         *string  `json:"base_url" yaml:"base_url"`
	Domain          *string  `json:"domain" yaml:"domain"`
	DebounceMS      *int     `json:"debounce_ms" yaml:"debounce_ms"`
	TimeoutMS       *int     `json:"timeout_ms" yaml:"timeout_ms"`
	AbortSuperseded *bool    `json:"abort_superseded" yaml:"abort_superseded"`
	Temperature     *float64 `json:"temperature" yaml:"temperature"`
	TopP            *float64 `json:"top_p" yaml:"top_p"`
	TopK            *int     `json:"top_k" yaml:"top_k"`
}

type filePlayback struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Model  *string `json:"model" yaml:"model"`
	Voice  *string `json:"voice" yaml:"voice"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable" yaml:"enable"`
	SoundEnable    *bool   `json:"sound_enable" yaml:"sound_enable"`
	DesktopAppName *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileServer struct {
	Listen *string `json:"listen" yaml:"listen"`
}

type fileVocab struct {
	Global     *stringList             `json:"global" yaml:"global"`
	MaxPhrases *int                    `json:"max_phrases" yaml:"max_phrases"`
	Sets       map[string]fileVocabSet `json:"sets" yaml:"sets"`
}

type fileVocabSet struct {
	Boost   *float64 `json:"boost" yaml:"boost"`
	Phrases []string `json:"phrases" yaml:"phrases"`
}

type fileDebug struct {
	GRPCDump *bool `json:"grpc_dump" yaml:"grpc_dump"`
}

// stringList accepts either a list or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.ScalarNode:
		*l = splitList(node.Value)
		return nil
	default:
		return fmt.Errorf("line %d: expected string array or comma-delimited string", node.Line)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func (payload filePayload) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	setString(&cfg.LogLevel, payload.LogLevel)
	setString(&cfg.EnvFile, payload.EnvFile)

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.Backend, r.Backend)
		setString(&cfg.Recognizer.LanguageCode, r.LanguageCode)
		setString(&cfg.Recognizer.Model, r.Model)
		setBool(&cfg.Recognizer.AutomaticPunctuation, r.AutomaticPunctuation)
		if g := r.Google; g != nil {
			setString(&cfg.Recognizer.Google.Endpoint, g.Endpoint)
			setString(&cfg.Recognizer.Google.CredentialsFile, g.CredentialsFile)
			setBool(&cfg.Recognizer.Google.Insecure, g.Insecure)
		}
		if d := r.Deepgram; d != nil {
			setString(&cfg.Recognizer.Deepgram.Endpoint, d.Endpoint)
			setString(&cfg.Recognizer.Deepgram.Model, d.Model)
		}
	}

	if t := payload.Translation; t != nil {
		setString(&cfg.Translation.Backend, t.Backend)
		setString(&cfg.Translation.TargetLanguage, t.TargetLanguage)
		setString(&cfg.Translation.Model, t.Model)
		setString(&cfg.Translation.BaseURL, t.BaseURL)
		setString(&cfg.Translation.Domain, t.Domain)
		setInt(&cfg.Translation.DebounceMS, t.DebounceMS)
		setInt(&cfg.Translation.TimeoutMS, t.TimeoutMS)
		setBool(&cfg.Translation.AbortSuperseded, t.AbortSuperseded)
		setFloat(&cfg.Translation.Temperature, t.Temperature)
		setFloat(&cfg.Translation.TopP, t.TopP)
		setInt(&cfg.Translation.TopK, t.TopK)
		if t.TopK != nil && strings.EqualFold(cfg.Translation.Backend, TranslatorOpenAI) {
			warnings = append(warnings, Warning{Message: "translation.top_k is ignored by the openai backend"})
		}
	}

	if p := payload.Playback; p != nil {
		setBool(&cfg.Playback.Enable, p.Enable)
		setString(&cfg.Playback.Model, p.Model)
		setString(&cfg.Playback.Voice, p.Voice)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if s := payload.Server; s != nil {
		setString(&cfg.Server.Listen, s.Listen)
	}

	if payload.Vocab != nil {
		if payload.Vocab.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0]
			for _, name := range *payload.Vocab.Global {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
			}
		}
		setInt(&cfg.Vocab.MaxPhrases, payload.Vocab.MaxPhrases)
		if payload.Vocab.Sets != nil {
			if cfg.Vocab.Sets == nil {
				cfg.Vocab.Sets = make(map[string]VocabSet)
			}
			for name, set := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}

				phrases := make([]string, 0, len(set.Phrases))
				phrases = append(phrases, set.Phrases...)

				entry := VocabSet{Name: trimmedName, Phrases: phrases}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				cfg.Vocab.Sets[trimmedName] = entry
			}
		}
	}

	if payload.Debug != nil {
		setBool(&cfg.Debug.EnableGRPCDump, payload.Debug.GRPCDump)
	}

	return warnings, nil
}
