// Package pipeline runs the streaming transcription to debounced translation
// relay on a single event goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/interpret/internal/debounce"
	"github.com/rbright/interpret/internal/dispatch"
	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/recognize"
	"github.com/rbright/interpret/internal/session"
	"github.com/rbright/interpret/internal/translate"
)

// ErrPlaybackDisabled reports a playback request without a configured speaker.
var ErrPlaybackDisabled = errors.New("playback is disabled")

// Speaker plays text aloud without blocking.
type Speaker interface {
	Play(text, languageCode string)
}

// Pane selects which text playback reads.
type Pane string

const (
	PaneOriginal    Pane = "original"
	PaneTranslation Pane = "translation"
)

// Options configures a Pipeline.
type Options struct {
	Source   languages.Language
	Target   languages.Language
	Debounce time.Duration
	Session  session.Config
	Dispatch dispatch.Config
}

// Status is a point-in-time view of the relay.
type Status struct {
	Session     session.Snapshot   `json:"session"`
	Source      languages.Language `json:"source"`
	Target      languages.Language `json:"target"`
	Translating bool               `json:"translating"`
	Translation string             `json:"translation"`
	LastError   string             `json:"last_error,omitempty"`
	Stats       StatsSnapshot      `json:"stats"`
}

// Pipeline wires CaptureSession -> Debouncer -> Dispatcher. All component
// state lives on the goroutine running Run.
type Pipeline struct {
	logger    *slog.Logger
	listeners Listeners
	speaker   Speaker

	events chan func()
	done   chan struct{}
	runCtx context.Context

	session    *session.Session
	debouncer  *debounce.Debouncer
	dispatcher *dispatch.Dispatcher

	source    languages.Language
	target    languages.Language
	lastError string
	stats     Stats
}

// New builds a pipeline. speaker may be nil to disable playback.
func New(recognizer recognize.Recognizer, translator translate.Translator, speaker Speaker, opts Options, logger *slog.Logger, listeners ...Listener) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Pipeline{
		logger:    logger,
		listeners: Listeners(listeners),
		speaker:   speaker,
		events:    make(chan func(), eventQueueSize),
		done:      make(chan struct{}),
		runCtx:    context.Background(),
		source:    opts.Source,
		target:    opts.Target,
	}

	p.session = session.New(recognizer, p.post, opts.Session, session.Callbacks{
		OnTranscript: p.onTranscript,
		OnStatus:     p.onStatus,
		OnError:      p.onError,
	}, logger.With("component", "session"))

	p.debouncer = debounce.New(opts.Debounce, loopScheduler{p: p}, p.onSettled)

	p.dispatcher = dispatch.New(translator, p.post, opts.Dispatch, dispatch.Callbacks{
		OnTranslation: p.onTranslation,
		OnError:       p.onError,
		OnTranslating: p.listeners.OnTranslating,
	}, logger.With("component", "dispatch", "backend", translator.Name()))

	return p
}

// Run processes events until ctx is done. Capture is stopped on the way out.
func (p *Pipeline) Run(ctx context.Context) error {
	p.runCtx = ctx
	defer close(p.done)

	p.logger.Info("pipeline running", "source", p.source.Code, "target", p.target.Code, "debounce_ms", p.debouncer.Quiet().Milliseconds())
	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil
		case fn := <-p.events:
			fn()
		}
	}
}

func (p *Pipeline) shutdown() {
	p.session.Stop()
	p.debouncer.Cancel()
	stats := p.statsSnapshot()
	p.logger.Info("pipeline stopped",
		"sessions", stats.Sessions,
		"restarts", stats.Restarts,
		"transcript_updates", stats.TranscriptUpdates,
		"dispatched", stats.Dispatched,
		"applied", stats.Applied,
		"stale_dropped", stats.StaleDropped,
		"translation_errors", stats.TranslationErrors,
	)
}

// StartCapture begins listening. An empty sourceCode keeps the current source language.
func (p *Pipeline) StartCapture(ctx context.Context, sourceCode string) error {
	var source languages.Language
	if strings.TrimSpace(sourceCode) != "" {
		lang, err := languages.Resolve(sourceCode)
		if err != nil {
			return err
		}
		source = lang
	}

	return p.run(ctx, func() error {
		if source.Code != "" {
			p.setSource(source)
		}
		if err := p.session.Start(p.runCtx, p.source.Code); err != nil {
			return err
		}
		p.beginSession()
		return nil
	})
}

// StopCapture stops listening and discards any pending settle. It is a no-op when idle.
func (p *Pipeline) StopCapture(ctx context.Context) error {
	return p.run(ctx, func() error {
		p.session.Stop()
		p.debouncer.Cancel()
		return nil
	})
}

// ToggleCapture starts capture when idle and stops it otherwise.
func (p *Pipeline) ToggleCapture(ctx context.Context) (fsm.State, error) {
	type toggled struct {
		state fsm.State
		err   error
	}
	out, err := call(ctx, p, func() toggled {
		if p.session.Status() != fsm.StateIdle {
			p.session.Stop()
			p.debouncer.Cancel()
			return toggled{state: p.session.Status()}
		}
		if err := p.session.Start(p.runCtx, p.source.Code); err != nil {
			return toggled{state: p.session.Status(), err: err}
		}
		p.beginSession()
		return toggled{state: p.session.Status()}
	})
	if err != nil {
		return "", err
	}
	return out.state, out.err
}

// SetSourceLanguage changes the recognition language, recreating the stream while listening.
func (p *Pipeline) SetSourceLanguage(ctx context.Context, code string) error {
	lang, err := languages.Resolve(code)
	if err != nil {
		return err
	}
	return p.run(ctx, func() error {
		p.setSource(lang)
		return nil
	})
}

// SetTargetLanguage changes the language used by the next dispatch.
func (p *Pipeline) SetTargetLanguage(ctx context.Context, code string) error {
	lang, err := languages.Resolve(code)
	if err != nil {
		return err
	}
	return p.run(ctx, func() error {
		if lang == p.target {
			return nil
		}
		p.target = lang
		p.logger.Info("target language changed", "target", lang.Code)
		p.listeners.OnLanguages(p.source, p.target)
		return nil
	})
}

func (p *Pipeline) Status(ctx context.Context) (Status, error) {
	return call(ctx, p, func() Status {
		_, translation, _ := p.dispatcher.LastTranslation()
		return Status{
			Session:     p.session.Snapshot(),
			Source:      p.source,
			Target:      p.target,
			Translating: p.dispatcher.Translating(),
			Translation: translation,
			LastError:   p.lastError,
			Stats:       p.statsSnapshot(),
		}
	})
}

// Play speaks the transcript or the latest translation.
func (p *Pipeline) Play(ctx context.Context, pane Pane) error {
	if p.speaker == nil {
		return ErrPlaybackDisabled
	}

	type utterance struct {
		text     string
		language string
		err      error
	}
	u, err := call(ctx, p, func() utterance {
		switch pane {
		case PaneOriginal:
			return utterance{text: p.session.Transcript(), language: p.source.Code}
		case PaneTranslation:
			req, text, _ := p.dispatcher.LastTranslation()
			language := req.Target.Code
			if language == "" {
				language = p.target.Code
			}
			return utterance{text: text, language: language}
		default:
			return utterance{err: fmt.Errorf("unknown pane %q (want original or translation)", pane)}
		}
	})
	if err != nil {
		return err
	}
	if u.err != nil {
		return u.err
	}
	if strings.TrimSpace(u.text) == "" {
		return fmt.Errorf("nothing to play in %s pane", pane)
	}

	p.speaker.Play(u.text, u.language)
	return nil
}

func (p *Pipeline) PlayOriginal(ctx context.Context) error {
	return p.Play(ctx, PaneOriginal)
}

func (p *Pipeline) PlayTranslation(ctx context.Context) error {
	return p.Play(ctx, PaneTranslation)
}

func (p *Pipeline) run(ctx context.Context, fn func() error) error {
	err, callErr := call(ctx, p, fn)
	if callErr != nil {
		return callErr
	}
	return err
}

// beginSession runs after a successful start. Translations requested by an
// earlier session are no longer applied once the transcript has reset.
func (p *Pipeline) beginSession() {
	p.stats.sessions.Add(1)
	p.lastError = ""
	p.dispatcher.Supersede()
}

func (p *Pipeline) setSource(lang languages.Language) {
	if lang == p.source {
		return
	}
	p.source = lang
	p.logger.Info("source language changed", "source", lang.Code)
	p.session.SetLanguage(lang.Code)
	p.listeners.OnLanguages(p.source, p.target)
}

func (p *Pipeline) onTranscript(text string, _ uint64) {
	p.stats.transcriptUpdates.Add(1)
	p.listeners.OnTranscript(text)
	// Results flushed while stopping never schedule a settle.
	if p.session.Status() == fsm.StateListening {
		p.debouncer.Notify(text)
	}
}

func (p *Pipeline) onSettled(text string) {
	p.stats.settles.Add(1)
	p.dispatcher.Dispatch(p.runCtx, text, p.source, p.target)
}

func (p *Pipeline) onStatus(state fsm.State) {
	if state == fsm.StateIdle {
		p.debouncer.Cancel()
		p.stats.restarts.Add(uint64(p.session.Snapshot().Restarts))
	}
	p.listeners.OnStatus(state)
}

func (p *Pipeline) onError(kind fault.Kind, detail string) {
	switch kind {
	case fault.TranslationFailed, fault.InvalidResponse:
		p.stats.translationErrors.Add(1)
	default:
		p.stats.recognitionErrors.Add(1)
	}
	p.lastError = fmt.Sprintf("%s: %s", kind, detail)
	p.listeners.OnError(kind, detail)
}

func (p *Pipeline) onTranslation(_ dispatch.Request, text string) {
	p.lastError = ""
	p.listeners.OnTranslation(text)
}

func (p *Pipeline) statsSnapshot() StatsSnapshot {
	out := p.stats.snapshot()
	ds := p.dispatcher.Stats()
	out.Dispatched = ds.Dispatched
	out.Applied = ds.Applied
	out.StaleDropped = ds.Stale
	return out
}
