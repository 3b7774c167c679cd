// Package session owns the continuous capture lifecycle: it keeps a
// recognition stream alive while listening and accumulates its transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/recognize"
)

// ErrActive reports a start request while a capture session is running.
var ErrActive = errors.New("capture already active")

// Callbacks receive session output on the event goroutine.
type Callbacks struct {
	OnTranscript func(text string, revision uint64)
	OnStatus     func(fsm.State)
	OnError      func(kind fault.Kind, detail string)
}

// Config is the recognizer configuration shared by every stream of a session.
type Config struct {
	Model                string
	AutomaticPunctuation bool
	Phrases              []recognize.SpeechPhrase
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	ID           string    `json:"id,omitempty"`
	Status       fsm.State `json:"status"`
	LanguageCode string    `json:"language_code"`
	Transcript   string    `json:"transcript"`
	Revision     uint64    `json:"revision"`
	Restarts     int       `json:"restarts"`
	StartedAt    time.Time `json:"started_at,omitzero"`
}

// Session is confined to the event goroutine. Stream opens and stream
// events re-enter through post.
type Session struct {
	recognizer recognize.Recognizer
	post       func(func())
	cfg        Config
	callbacks  Callbacks
	logger     *slog.Logger

	ctx          context.Context
	status       fsm.State
	id           string
	language     string
	restartOnEnd bool
	startedAt    time.Time

	streamID uint64
	stream   recognize.Stream

	carried  string
	current  string
	revision uint64
	restarts int
}

func New(recognizer recognize.Recognizer, post func(func()), cfg Config, callbacks Callbacks, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if callbacks.OnTranscript == nil {
		callbacks.OnTranscript = func(string, uint64) {}
	}
	if callbacks.OnStatus == nil {
		callbacks.OnStatus = func(fsm.State) {}
	}
	if callbacks.OnError == nil {
		callbacks.OnError = func(fault.Kind, string) {}
	}
	return &Session{
		recognizer: recognizer,
		post:       post,
		cfg:        cfg,
		callbacks:  callbacks,
		logger:     logger,
		ctx:        context.Background(),
		status:     fsm.StateIdle,
	}
}

// Start begins listening in languageCode. Streams opened by this session
// live until ctx is done.
func (s *Session) Start(ctx context.Context, languageCode string) error {
	if s.status != fsm.StateIdle {
		return fmt.Errorf("%w (%s)", ErrActive, s.status)
	}

	if err := s.recognizer.Check(ctx); err != nil {
		kind := fault.RecognitionFailed
		if errors.Is(err, recognize.ErrUnsupportedEnvironment) {
			kind = fault.UnsupportedEnvironment
		}
		s.logger.Error("capture unavailable", "kind", string(kind), "error", err)
		s.callbacks.OnError(kind, err.Error())
		return fault.New(kind, err)
	}

	if err := s.transition(fsm.EventStart); err != nil {
		return err
	}

	s.ctx = ctx
	s.id = uuid.NewString()
	s.language = strings.TrimSpace(languageCode)
	s.restartOnEnd = true
	s.startedAt = time.Now()
	s.carried = ""
	s.current = ""
	s.revision = 0
	s.restarts = 0

	s.logger.Info("capture started", "session", s.id, "language", s.language)
	s.callbacks.OnStatus(s.status)
	s.open()
	return nil
}

// Stop requests an explicit stop. It is a no-op unless listening.
func (s *Session) Stop() {
	if s.status != fsm.StateListening {
		return
	}

	s.restartOnEnd = false
	if err := s.transition(fsm.EventStop); err != nil {
		s.logger.Error("stop transition failed", "error", err)
		return
	}
	s.callbacks.OnStatus(s.status)

	if s.stream == nil {
		// A stream open is still pending; its result is discarded on arrival.
		s.streamID++
		s.finalize()
		return
	}
	_ = s.stream.Stop()
}

// SetLanguage records the source language and recreates the stream when listening.
func (s *Session) SetLanguage(languageCode string) {
	languageCode = strings.TrimSpace(languageCode)
	if languageCode == s.language {
		return
	}
	s.language = languageCode
	if s.status != fsm.StateListening {
		return
	}

	if err := s.transition(fsm.EventRelanguage); err != nil {
		s.logger.Error("language transition failed", "error", err)
		return
	}
	if s.stream != nil {
		_ = s.stream.Stop()
		s.stream = nil
	}
	s.carry()
	s.logger.Info("capture language changed", "session", s.id, "language", languageCode)
	s.open()
}

func (s *Session) Status() fsm.State {
	return s.status
}

func (s *Session) Language() string {
	return s.language
}

// Transcript returns text carried from earlier streams plus the current stream.
func (s *Session) Transcript() string {
	switch {
	case s.carried == "":
		return s.current
	case s.current == "":
		return s.carried
	default:
		return s.carried + " " + s.current
	}
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:           s.id,
		Status:       s.status,
		LanguageCode: s.language,
		Transcript:   s.Transcript(),
		Revision:     s.revision,
		Restarts:     s.restarts,
		StartedAt:    s.startedAt,
	}
}

func (s *Session) streamConfig() recognize.StreamConfig {
	return recognize.StreamConfig{
		LanguageCode:         s.language,
		Model:                s.cfg.Model,
		AutomaticPunctuation: s.cfg.AutomaticPunctuation,
		Continuous:           true,
		InterimResults:       true,
		Phrases:              s.cfg.Phrases,
	}
}

// open dials a new stream off the event goroutine.
func (s *Session) open() {
	s.streamID++
	id := s.streamID
	ctx := s.ctx
	cfg := s.streamConfig()
	recognizer := s.recognizer

	go func() {
		stream, err := recognizer.Open(ctx, cfg)
		s.post(func() {
			s.attach(id, stream, err)
		})
	}()
}

func (s *Session) attach(id uint64, stream recognize.Stream, err error) {
	if id != s.streamID || s.status != fsm.StateListening {
		if stream != nil {
			discard(stream)
		}
		return
	}
	if err != nil {
		s.fail(fault.RecognitionFailed, fmt.Errorf("open recognition stream: %w", err))
		return
	}

	s.stream = stream
	s.logger.Debug("recognition stream attached", "session", s.id, "stream", id)
	go s.forward(id, stream)
}

// forward relays stream events onto the event goroutine until the stream closes.
func (s *Session) forward(id uint64, stream recognize.Stream) {
	for ev := range stream.Events() {
		s.post(func() {
			s.handle(id, ev)
		})
	}
}

func (s *Session) handle(id uint64, ev recognize.Event) {
	if id != s.streamID {
		return
	}

	switch ev.Kind {
	case recognize.EventResult:
		s.current = recognize.JoinFragments(ev.Fragments)
		s.revision++
		s.callbacks.OnTranscript(s.Transcript(), s.revision)
	case recognize.EventEnded:
		s.stream = nil
		s.carry()
		switch s.status {
		case fsm.StateListening:
			if !s.restartOnEnd {
				s.fail(fault.RecognitionFailed, errors.New("recognition stream ended unexpectedly"))
				return
			}
			if err := s.transition(fsm.EventEnded); err != nil {
				s.logger.Error("restart transition failed", "error", err)
				return
			}
			s.restarts++
			s.logger.Debug("recognition stream ended, restarting", "session", s.id, "restarts", s.restarts)
			s.open()
		case fsm.StateStopping:
			s.finalize()
		}
	case recognize.EventError:
		if s.status == fsm.StateStopping {
			s.stream = nil
			s.logger.Debug("recognition error while stopping", "session", s.id, "error", ev.Err)
			s.carry()
			s.finalize()
			return
		}
		err := ev.Err
		if err == nil {
			err = errors.New("recognition stream failed")
		}
		s.fail(fault.RecognitionFailed, err)
	}
}

// carry folds the current stream's text into the session transcript.
func (s *Session) carry() {
	s.carried = s.Transcript()
	s.current = ""
}

func (s *Session) finalize() {
	if err := s.transition(fsm.EventEnded); err != nil {
		s.logger.Error("finalize transition failed", "error", err)
		return
	}
	s.logger.Info("capture stopped",
		"session", s.id,
		"duration_ms", time.Since(s.startedAt).Milliseconds(),
		"restarts", s.restarts,
		"revision", s.revision,
		"transcript_chars", len(s.Transcript()),
	)
	s.callbacks.OnStatus(s.status)
}

// fail ends the session without restarting.
func (s *Session) fail(kind fault.Kind, err error) {
	_ = s.transition(fsm.EventFail)
	s.restartOnEnd = false
	s.streamID++
	if s.stream != nil {
		_ = s.stream.Stop()
		s.stream = nil
	}

	s.logger.Error("capture failed", "session", s.id, "kind", string(kind), "error", err)
	s.callbacks.OnStatus(s.status)
	s.callbacks.OnError(kind, err.Error())
}

func (s *Session) transition(event fsm.Event) error {
	next, err := fsm.Transition(s.status, event)
	if err != nil {
		return err
	}
	s.status = next
	return nil
}

// discard stops an unwanted stream and drains it so its goroutines exit.
func discard(stream recognize.Stream) {
	_ = stream.Stop()
	go func() {
		for range stream.Events() {
		}
	}()
}
