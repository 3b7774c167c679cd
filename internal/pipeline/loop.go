package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/interpret/internal/debounce"
)

// ErrStopped reports a call made after the event loop exited.
var ErrStopped = errors.New("pipeline is not running")

const eventQueueSize = 256

// post queues fn onto the event goroutine. It is dropped once the loop has exited.
func (p *Pipeline) post(fn func()) {
	select {
	case p.events <- fn:
	case <-p.done:
	}
}

// call runs fn on the event goroutine and waits for its result.
func call[T any](ctx context.Context, p *Pipeline, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)

	select {
	case p.events <- func() { result <- fn() }:
	case <-p.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-result:
		return v, nil
	case <-p.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// loopScheduler runs debounce callbacks on the event goroutine.
type loopScheduler struct {
	p *Pipeline
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) debounce.Timer {
	return time.AfterFunc(d, func() {
		s.p.post(fn)
	})
}
