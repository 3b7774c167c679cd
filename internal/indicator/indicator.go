// Package indicator mirrors capture status and errors as audio cues and
// desktop notifications.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/pipeline"
)

const (
	notifyTimeout   = 400 * time.Millisecond
	persistentMS    = 300000
	defaultErrorMS  = 4000
	defaultAppName  = "interpret"
	notifyQueueSize = 16
)

// Config controls which surfaces the indicator drives.
type Config struct {
	Enable         bool
	SoundEnable    bool
	DesktopAppName string
	ErrorTimeoutMS int
}

// Notifier is a pipeline listener. Its callbacks return immediately; bus
// calls run in order on a worker goroutine and cues on another.
type Notifier struct {
	pipeline.NopListener

	cfg      Config
	logger   *slog.Logger
	messages messages

	notify  func(ctx context.Context, n notification) (uint32, error)
	dismiss func(ctx context.Context, id uint32) error
	cue     func(ctx context.Context, kind cueKind) error

	jobs    chan func(context.Context)
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	soundMu sync.Mutex

	// notificationID is owned by the worker goroutine.
	notificationID uint32
}

func New(cfg Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if strings.TrimSpace(cfg.DesktopAppName) == "" {
		cfg.DesktopAppName = defaultAppName
	}
	if cfg.ErrorTimeoutMS <= 0 {
		cfg.ErrorTimeoutMS = defaultErrorMS
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFromEnv(),
		notify:   desktopNotify,
		dismiss:  desktopDismiss,
		cue:      emitCue,
		jobs:     make(chan func(context.Context), notifyQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	n.wg.Add(1)
	go n.work()
	return n
}

// OnStatus shows a persistent notification while capturing and plays start/stop cues.
func (n *Notifier) OnStatus(state fsm.State) {
	switch state {
	case fsm.StateListening:
		n.playCue(cueStart)
		n.show(n.messages.listening, "", persistentMS, urgencyNormal)
	case fsm.StateStopping:
		n.show(n.messages.stopping, "", persistentMS, urgencyLow)
	case fsm.StateIdle:
		n.playCue(cueStop)
		n.hide()
	}
}

// OnError plays the error cue and shows a short-lived notification.
func (n *Notifier) OnError(kind fault.Kind, detail string) {
	n.playCue(cueError)
	n.show(n.messages.forKind(kind), detail, n.cfg.ErrorTimeoutMS, urgencyCritical)
}

// Close drops queued notifications and waits for the workers.
func (n *Notifier) Close() {
	n.cancel()
	n.wg.Wait()
}

func (n *Notifier) show(summary, body string, timeoutMS int, level urgency) {
	if !n.cfg.Enable {
		return
	}
	n.enqueue(func(ctx context.Context) {
		id, err := n.notify(ctx, notification{
			AppName:   n.cfg.DesktopAppName,
			ReplaceID: n.notificationID,
			Summary:   summary,
			Body:      body,
			TimeoutMS: timeoutMS,
			Urgency:   level,
		})
		if err != nil {
			n.log("indicator notify failed", err)
			return
		}
		n.notificationID = id
	})
}

func (n *Notifier) hide() {
	if !n.cfg.Enable {
		return
	}
	n.enqueue(func(ctx context.Context) {
		id := n.notificationID
		n.notificationID = 0
		if id == 0 {
			return
		}
		if err := n.dismiss(ctx, id); err != nil {
			n.log("indicator dismiss failed", err)
		}
	})
}

func (n *Notifier) enqueue(job func(context.Context)) {
	select {
	case n.jobs <- job:
	case <-n.ctx.Done():
	default:
		n.logger.Debug("indicator queue full, dropping notification")
	}
}

func (n *Notifier) work() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case job := <-n.jobs:
			ctx, cancel := context.WithTimeout(n.ctx, notifyTimeout)
			job(ctx)
			cancel()
		}
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable || n.ctx.Err() != nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(n.ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
