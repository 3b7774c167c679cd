// Package dispatch issues translation calls for settled transcripts and
// applies only the result of the most recent request.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/translate"
)

const DefaultTimeout = 30 * time.Second

// Request is one issued translation call.
type Request struct {
	ID       uint64
	Text     string
	Source   languages.Language
	Target   languages.Language
	IssuedAt time.Time
}

// Callbacks receive applied outcomes on the event goroutine.
type Callbacks struct {
	OnTranslation func(req Request, text string)
	OnError       func(kind fault.Kind, detail string)
	OnTranslating func(active bool)
}

type Config struct {
	// Timeout bounds one call. Zero disables the bound.
	Timeout time.Duration
	// AbortSuperseded cancels the context of a call once a newer request is issued.
	AbortSuperseded bool
}

// Stats counts dispatcher outcomes.
type Stats struct {
	Dispatched uint64
	Applied    uint64
	Stale      uint64
	Failed     uint64
}

// Dispatcher is confined to the event goroutine; results re-enter through post.
type Dispatcher struct {
	translator translate.Translator
	post       func(func())
	cfg        Config
	callbacks  Callbacks
	logger     *slog.Logger
	now        func() time.Time

	latestRequestID uint64
	latest          Request
	active          bool
	cancelLatest    context.CancelFunc

	lastApplied Request
	lastText    string

	stats Stats
}

func New(translator translate.Translator, post func(func()), cfg Config, callbacks Callbacks, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if callbacks.OnTranslation == nil {
		callbacks.OnTranslation = func(Request, string) {}
	}
	if callbacks.OnError == nil {
		callbacks.OnError = func(fault.Kind, string) {}
	}
	if callbacks.OnTranslating == nil {
		callbacks.OnTranslating = func(bool) {}
	}
	return &Dispatcher{
		translator: translator,
		post:       post,
		cfg:        cfg,
		callbacks:  callbacks,
		logger:     logger,
		now:        time.Now,
	}
}

// Dispatch issues a translation call for text. Empty or whitespace-only text is ignored.
// It returns the allocated request id and whether a call was issued.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, source, target languages.Language) (uint64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	if d.cfg.AbortSuperseded && d.cancelLatest != nil {
		d.cancelLatest()
	}

	d.latestRequestID++
	req := Request{
		ID:       d.latestRequestID,
		Text:     text,
		Source:   source,
		Target:   target,
		IssuedAt: d.now(),
	}
	d.latest = req
	d.stats.Dispatched++

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if d.cfg.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	d.cancelLatest = cancel

	if !d.active {
		d.active = true
		d.callbacks.OnTranslating(true)
	}

	d.logger.Debug("translation dispatched", "request_id", req.ID, "chars", len(text), "source", source.Code, "target", target.Code)

	translator := d.translator
	timeout := d.cfg.Timeout
	go func() {
		defer cancel()
		out, err := translator.Translate(callCtx, translate.Request{Text: text, Source: source, Target: target})
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("translation timed out after %s: %w", timeout, err)
		}
		d.post(func() {
			d.complete(req, out, err)
		})
	}()

	return req.ID, true
}

// Supersede fences off every issued request, so results still in flight are
// dropped as stale. The in-flight call, if any, is cancelled.
func (d *Dispatcher) Supersede() {
	if d.cancelLatest != nil {
		d.cancelLatest()
		d.cancelLatest = nil
	}
	if d.latestRequestID == 0 {
		return
	}
	d.latestRequestID++
	d.logger.Debug("requests superseded", "fence", d.latestRequestID)
	if d.active {
		d.active = false
		d.callbacks.OnTranslating(false)
	}
}

// complete applies a result only when it belongs to the latest request.
func (d *Dispatcher) complete(req Request, text string, err error) {
	elapsed := d.now().Sub(req.IssuedAt)
	if req.ID != d.latestRequestID {
		d.stats.Stale++
		d.logger.Debug("stale translation dropped", "request_id", req.ID, "latest_request_id", d.latestRequestID, "elapsed_ms", elapsed.Milliseconds())
		return
	}

	d.active = false
	d.cancelLatest = nil

	if err != nil {
		d.stats.Failed++
		cause := fault.KindOf(err)
		if cause == "" {
			cause = fault.TranslationFailed
		}
		d.logger.Warn("translation failed", "request_id", req.ID, "cause", string(cause), "error", err, "elapsed_ms", elapsed.Milliseconds())
		d.callbacks.OnError(fault.TranslationFailed, fault.Detail(err))
		d.callbacks.OnTranslating(false)
		return
	}

	d.stats.Applied++
	d.lastApplied = req
	d.lastText = text
	d.logger.Debug("translation applied", "request_id", req.ID, "elapsed_ms", elapsed.Milliseconds())
	d.callbacks.OnTranslation(req, text)
	d.callbacks.OnTranslating(false)
}

// LatestRequestID returns the id of the most recently issued request.
func (d *Dispatcher) LatestRequestID() uint64 {
	return d.latestRequestID
}

// Translating reports whether the latest request is still awaiting its result.
func (d *Dispatcher) Translating() bool {
	return d.active
}

// LastTranslation returns the most recently applied translation.
func (d *Dispatcher) LastTranslation() (Request, string, bool) {
	return d.lastApplied, d.lastText, d.lastApplied.ID != 0
}

func (d *Dispatcher) Stats() Stats {
	return d.stats
}
