package recognize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/interpret/internal/audio"
)

// DefaultStopGrace bounds how long Stop waits for the service to flush before forcing the end.
const DefaultStopGrace = 5 * time.Second

const eventBuffer = 64

// Live opens streams that pipe captured audio into a recognition backend.
type Live struct {
	source    AudioSource
	backend   Backend
	logger    *slog.Logger
	stopGrace time.Duration
}

// NewLive builds a recognizer from an audio source and backend. Either may be nil,
// in which case Check reports an unsupported environment.
func NewLive(source AudioSource, backend Backend, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Live{
		source:    source,
		backend:   backend,
		logger:    logger,
		stopGrace: DefaultStopGrace,
	}
}

// Backend returns the configured backend name.
func (l *Live) Backend() string {
	if l == nil || l.backend == nil {
		return ""
	}
	return l.backend.Name()
}

func (l *Live) Check(ctx context.Context) error {
	if l == nil || l.backend == nil {
		return fmt.Errorf("%w: no recognizer backend configured", ErrUnsupportedEnvironment)
	}
	if l.source == nil {
		return fmt.Errorf("%w: no audio source configured", ErrUnsupportedEnvironment)
	}
	if err := l.backend.Check(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedEnvironment, l.backend.Name(), err)
	}
	if err := l.source.Check(ctx); err != nil {
		return fmt.Errorf("%w: audio input: %w", ErrUnsupportedEnvironment, err)
	}
	return nil
}

func (l *Live) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	if l == nil || l.backend == nil || l.source == nil {
		return nil, fmt.Errorf("%w: recognizer is not configured", ErrUnsupportedEnvironment)
	}

	conn, err := l.backend.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s recognizer: %w", l.backend.Name(), err)
	}

	capture, err := l.source.Start(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("start audio capture: %w", err)
	}

	stream := newLiveStream(conn, capture, l.stopGrace, l.logger.With("backend", l.backend.Name(), "language", cfg.LanguageCode))
	go stream.sendLoop()
	go stream.recvLoop()
	return stream, nil
}

type liveStream struct {
	conn      Conn
	capture   AudioCapture
	logger    *slog.Logger
	stopGrace time.Duration

	events   chan Event
	recvDone chan struct{}

	stopOnce sync.Once
	stopping atomic.Bool
	sent     atomic.Int64
}

func newLiveStream(conn Conn, capture AudioCapture, stopGrace time.Duration, logger *slog.Logger) *liveStream {
	return &liveStream{
		conn:      conn,
		capture:   capture,
		logger:    logger,
		stopGrace: stopGrace,
		events:    make(chan Event, eventBuffer),
		recvDone:  make(chan struct{}),
	}
}

func (s *liveStream) Events() <-chan Event {
	return s.events
}

// Stop ends capture, half-closes the backend stream, and forces the end after the grace period.
func (s *liveStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		_ = s.capture.Stop()

		go func() {
			timer := time.NewTimer(s.stopGrace)
			defer timer.Stop()
			select {
			case <-s.recvDone:
			case <-timer.C:
				s.logger.Warn("recognizer did not finish after stop, closing stream", "grace", s.stopGrace)
				_ = s.conn.Close()
			}
		}()
	})
	return nil
}

// sendLoop forwards captured chunks until capture stops, then half-closes the stream.
func (s *liveStream) sendLoop() {
	var sendErr error
	for chunk := range s.capture.Chunks() {
		if sendErr != nil || len(chunk) == 0 {
			continue
		}
		if err := s.conn.SendAudio(chunk); err != nil {
			sendErr = err
			s.logger.Debug("send audio failed", "error", err)
			_ = s.capture.Stop()
			continue
		}
		s.sent.Add(int64(len(chunk)))
	}

	if counter, ok := s.capture.(interface{ Dropped() int64 }); ok {
		if dropped := counter.Dropped(); dropped > 0 {
			s.logger.Warn("audio chunks dropped while recognizer lagged", "dropped", dropped)
		}
	}

	if sendErr == nil {
		if err := s.conn.CloseSend(); err != nil {
			s.logger.Debug("close send failed", "error", err)
		}
	}
}

// recvLoop turns backend responses into events until the stream terminates.
func (s *liveStream) recvLoop() {
	defer close(s.events)
	defer close(s.recvDone)

	var results resultLog
	for {
		resp, err := s.conn.Recv()
		if err == nil {
			if fragments, changed := results.apply(resp.Results); changed {
				s.events <- Event{Kind: EventResult, Fragments: fragments}
			}
			continue
		}

		_ = s.capture.Stop()
		_ = s.conn.Close()

		if errors.Is(err, io.EOF) || s.stopping.Load() {
			s.logger.Debug("recognition stream ended", "bytes_sent", s.sent.Load(), "stopped", s.stopping.Load())
			s.events <- Event{Kind: EventEnded}
			return
		}
		s.logger.Debug("recognition stream failed", "error", err)
		s.events <- Event{Kind: EventError, Err: err}
		return
	}
}

// PulseSource adapts an audio.Source to AudioSource.
type PulseSource struct {
	Source audio.Source
}

func (p PulseSource) Check(ctx context.Context) error {
	return p.Source.Check(ctx)
}

func (p PulseSource) Start(ctx context.Context) (AudioCapture, error) {
	capture, err := p.Source.Start(ctx)
	if err != nil {
		return nil, err
	}
	return capture, nil
}
