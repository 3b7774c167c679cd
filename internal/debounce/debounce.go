// Package debounce coalesces bursts of transcript updates into one settle.
package debounce

import "time"

// DefaultQuiet is the quiet interval after which a burst settles.
const DefaultQuiet = 500 * time.Millisecond

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d. Callbacks must run on the goroutine that
// calls Notify and Cancel.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Debouncer is not safe for concurrent use. All methods and scheduled
// callbacks run on one goroutine.
type Debouncer struct {
	quiet     time.Duration
	scheduler Scheduler
	onSettled func(string)

	pending    string
	timer      Timer
	generation uint64
}

func New(quiet time.Duration, scheduler Scheduler, onSettled func(string)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if onSettled == nil {
		onSettled = func(string) {}
	}
	return &Debouncer{
		quiet:     quiet,
		scheduler: scheduler,
		onSettled: onSettled,
	}
}

// Notify records text as the latest value and restarts the quiet interval.
func (d *Debouncer) Notify(text string) {
	d.pending = text
	d.stopTimer()

	d.generation++
	generation := d.generation
	d.timer = d.scheduler.AfterFunc(d.quiet, func() {
		d.fire(generation)
	})
}

// Cancel discards any pending firing.
func (d *Debouncer) Cancel() {
	d.stopTimer()
	d.generation++
	d.pending = ""
}

// Pending reports whether a settle is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

func (d *Debouncer) Quiet() time.Duration {
	return d.quiet
}

// fire ignores callbacks queued before a later Notify or Cancel.
func (d *Debouncer) fire(generation uint64) {
	if generation != d.generation || d.timer == nil {
		return
	}
	d.timer = nil
	text := d.pending
	d.pending = ""
	d.onSettled(text)
}

func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
