package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/rbright/interpret/internal/audio"
	"github.com/rbright/interpret/internal/cli"
	"github.com/rbright/interpret/internal/config"
	"github.com/rbright/interpret/internal/console"
	"github.com/rbright/interpret/internal/dispatch"
	"github.com/rbright/interpret/internal/indicator"
	"github.com/rbright/interpret/internal/ipc"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/logging"
	"github.com/rbright/interpret/internal/pipeline"
	"github.com/rbright/interpret/internal/playback"
	"github.com/rbright/interpret/internal/recognize"
	"github.com/rbright/interpret/internal/session"
	"github.com/rbright/interpret/internal/translate"
	"github.com/rbright/interpret/internal/web"
)

// relay holds the owner-process components and their teardown.
type relay struct {
	pipeline *pipeline.Pipeline
	hub      *web.Hub
	closers  []func()
}

func (rl *relay) close() {
	for i := len(rl.closers) - 1; i >= 0; i-- {
		rl.closers[i]()
	}
}

// commandRun is the owner path: it holds the runtime socket, runs the
// pipeline, serves IPC and the optional web gateway, and starts capture.
func (r Runner) commandRun(ctx context.Context, parsed cli.Parsed, cfg config.Config, lookup config.LookupFunc, logger *slog.Logger) int {
	if err := applyLanguageFlags(&cfg, parsed); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	owner, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Warn("removed stale runtime socket", "path", path)
		},
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := owner.Release(); err != nil {
			logger.Warn("release runtime socket", "error", err.Error())
		}
	}()

	secrets, err := config.LoadSecrets(cfg.EnvFile, lookup)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	rl, err := buildRelay(ctx, cfg, secrets, r.Stdout, r.Stderr, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer rl.close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipelineDone := make(chan error, 1)
	go func() {
		pipelineDone <- rl.pipeline.Run(runCtx)
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, owner.Listener, rl.pipeline)
	}()

	webErrCh := make(chan error, 1)
	if listen := strings.TrimSpace(cfg.Server.Listen); listen != "" {
		ln, err := net.Listen("tcp", listen)
		if err != nil {
			cancel()
			<-pipelineDone
			<-serverErrCh
			fmt.Fprintf(r.Stderr, "error: web server: %v\n", err)
			return 1
		}
		srv := web.New(rl.pipeline, rl.hub, logger.With("component", "web"))
		logger.Info("web gateway listening", "addr", ln.Addr().String())
		go func() {
			webErrCh <- srv.Serve(runCtx, ln)
		}()
	} else {
		webErrCh <- nil
	}

	exitCode := 0
	if err := rl.pipeline.StartCapture(ctx, ""); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("initial capture failed", "error", err.Error())
		exitCode = 1
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErrCh:
			serverErrCh <- err
		}
	}

	cancel()
	if err := <-pipelineDone; err != nil {
		logger.Error("pipeline failed", "error", err.Error())
	}
	if err := <-serverErrCh; err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		exitCode = 1
	}
	if err := <-webErrCh; err != nil {
		fmt.Fprintf(r.Stderr, "error: web server failed: %v\n", err)
		exitCode = 1
	}
	return exitCode
}

func applyLanguageFlags(cfg *config.Config, parsed cli.Parsed) error {
	if code := strings.TrimSpace(parsed.Source); code != "" {
		if _, err := languages.Resolve(code); err != nil {
			return fmt.Errorf("--source: %w", err)
		}
		cfg.Recognizer.LanguageCode = code
	}
	if code := strings.TrimSpace(parsed.Target); code != "" {
		if _, err := languages.Resolve(code); err != nil {
			return fmt.Errorf("--target: %w", err)
		}
		cfg.Translation.TargetLanguage = code
	}
	return nil
}

func buildRelay(ctx context.Context, cfg config.Config, secrets config.Secrets, stdout, stderr io.Writer, logger *slog.Logger) (*relay, error) {
	rl := &relay{}

	source, err := languages.Resolve(cfg.Recognizer.LanguageCode)
	if err != nil {
		return nil, fmt.Errorf("source language: %w", err)
	}
	target, err := languages.Resolve(cfg.Translation.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}

	phrases, _, err := config.BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("speech context plan", "phrase_count", len(phrases), "phrases", phrases)

	recognizer, closeRecognizer, err := buildRecognizer(cfg, secrets, logger)
	if err != nil {
		return nil, err
	}
	rl.closers = append(rl.closers, closeRecognizer)

	translator, err := buildTranslator(ctx, cfg, secrets)
	if err != nil {
		rl.close()
		return nil, err
	}

	speaker := buildSpeaker(cfg, secrets, logger, stderr)
	if closer, ok := speaker.(interface{ Close() }); ok {
		rl.closers = append(rl.closers, closer.Close)
	}

	notifier := indicator.New(indicator.Config{
		Enable:         cfg.Indicator.Enable,
		SoundEnable:    cfg.Indicator.SoundEnable,
		DesktopAppName: cfg.Indicator.DesktopAppName,
		ErrorTimeoutMS: cfg.Indicator.ErrorTimeoutMS,
	}, logger.With("component", "indicator"))
	rl.closers = append(rl.closers, notifier.Close)

	rl.hub = web.NewHub(logger.With("component", "hub"))

	rl.pipeline = pipeline.New(recognizer, translator, speaker, pipeline.Options{
		Source:   source,
		Target:   target,
		Debounce: time.Duration(cfg.Translation.DebounceMS) * time.Millisecond,
		Session: session.Config{
			Model:                cfg.Recognizer.Model,
			AutomaticPunctuation: cfg.Recognizer.AutomaticPunctuation,
			Phrases:              toRecognizerPhrases(phrases),
		},
		Dispatch: dispatch.Config{
			Timeout:         time.Duration(cfg.Translation.TimeoutMS) * time.Millisecond,
			AbortSuperseded: cfg.Translation.AbortSuperseded,
		},
	}, logger.With("component", "pipeline"),
		console.New(stdout, source, target),
		notifier,
		rl.hub,
	)

	return rl, nil
}

func buildRecognizer(cfg config.Config, secrets config.Secrets, logger *slog.Logger) (*recognize.Live, func(), error) {
	closeFn := func() {}

	var sink io.Writer
	if cfg.Debug.EnableGRPCDump {
		f, err := logging.CreateDebugFile("recognizer", "jsonl", time.Now())
		if err != nil {
			logger.Warn("recognizer debug dump disabled", "error", err.Error())
		} else {
			logger.Info("recognizer debug dump enabled", "path", f.Name())
			sink = f
			closeFn = func() { _ = f.Close() }
		}
	}

	var backend recognize.Backend
	switch cfg.Recognizer.Backend {
	case config.RecognizerDeepgram:
		backend = recognize.NewDeepgram(recognize.DeepgramConfig{
			Endpoint:  cfg.Recognizer.Deepgram.Endpoint,
			APIKey:    secrets.DeepgramAPIKey,
			Model:     cfg.Recognizer.Deepgram.Model,
			DebugSink: sink,
		})
	case config.RecognizerGoogle, "":
		credentials := strings.TrimSpace(cfg.Recognizer.Google.CredentialsFile)
		if credentials == "" {
			credentials = secrets.GoogleCredentials
		}
		backend = recognize.NewGoogle(recognize.GoogleConfig{
			Endpoint:        cfg.Recognizer.Google.Endpoint,
			CredentialsFile: credentials,
			Insecure:        cfg.Recognizer.Google.Insecure,
			DebugSink:       sink,
		})
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown recognizer backend %q", cfg.Recognizer.Backend)
	}

	source := recognize.PulseSource{Source: audio.Source{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger.With("component", "audio"),
	}}
	return recognize.NewLive(source, backend, logger.With("component", "recognizer")), closeFn, nil
}

func buildTranslator(ctx context.Context, cfg config.Config, secrets config.Secrets) (translate.Translator, error) {
	apiKey := secrets.GeminiAPIKey
	if cfg.Translation.Backend == config.TranslatorOpenAI {
		apiKey = secrets.OpenAIAPIKey
	}
	translator, err := translate.New(ctx, translate.Config{
		Backend: cfg.Translation.Backend,
		Model:   cfg.Translation.ResolvedModel(),
		BaseURL: cfg.Translation.BaseURL,
		APIKey:  apiKey,
		Settings: translate.Settings{
			Domain:      cfg.Translation.Domain,
			Temperature: float32(cfg.Translation.Temperature),
			TopP:        float32(cfg.Translation.TopP),
			TopK:        cfg.Translation.TopK,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build translator: %w", err)
	}
	return translator, nil
}

// buildSpeaker returns nil when playback is disabled or cannot be configured;
// the relay keeps running without it.
func buildSpeaker(cfg config.Config, secrets config.Secrets, logger *slog.Logger, stderr io.Writer) pipeline.Speaker {
	if !cfg.Playback.Enable {
		return nil
	}
	baseURL := ""
	if cfg.Translation.Backend == config.TranslatorOpenAI {
		baseURL = cfg.Translation.BaseURL
	}
	speaker, err := playback.New(playback.Config{
		APIKey:  secrets.OpenAIAPIKey,
		BaseURL: baseURL,
		Model:   cfg.Playback.Model,
		Voice:   cfg.Playback.Voice,
	}, logger.With("component", "playback"))
	if err != nil {
		logger.Warn("playback disabled", "error", err.Error())
		if errors.Is(err, playback.ErrMissingAPIKey) {
			fmt.Fprintln(stderr, "warning: playback disabled: OPENAI_API_KEY is not set")
		}
		return nil
	}
	return speaker
}

func toRecognizerPhrases(phrases []config.SpeechPhrase) []recognize.SpeechPhrase {
	if len(phrases) == 0 {
		return nil
	}
	out := make([]recognize.SpeechPhrase, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, recognize.SpeechPhrase{Phrase: p.Phrase, Boost: p.Boost})
	}
	return out
}
