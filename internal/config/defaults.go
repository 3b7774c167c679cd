package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recognizer: RecognizerConfig{
			Backend:              RecognizerGoogle,
			LanguageCode:         "en-US",
			AutomaticPunctuation: true,
			Deepgram: DeepgramConfig{
				Endpoint: "wss://api.deepgram.com/v1/listen",
				Model:    "nova-2",
			},
		},
		Translation: TranslationConfig{
			Backend:         TranslatorGemini,
			TargetLanguage:  "es-ES",
			Domain:          "medical",
			DebounceMS:      500,
			TimeoutMS:       30000,
			AbortSuperseded: true,
			Temperature:     0.1,
			TopP:            0.1,
			TopK:            1,
		},
		Playback: PlaybackConfig{
			Enable: true,
			Model:  "tts-1",
			Voice:  "alloy",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			SoundEnable:    true,
			DesktopAppName: "interpret",
			ErrorTimeoutMS: 4000,
		},
		Vocab: VocabConfig{
			GlobalSets: nil,
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
		Debug: DebugConfig{},
	}
}
