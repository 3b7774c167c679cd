package debounce

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBurstSettlesOnceWithLastValue(t *testing.T) {
	clock := newManualScheduler()
	var settled []string
	d := New(500*time.Millisecond, clock, func(text string) { settled = append(settled, text) })

	for _, text := range []string{"a", "ab", "abc", "abcd"} {
		d.Notify(text)
		clock.Advance(100 * time.Millisecond)
	}
	require.Empty(t, settled)
	require.True(t, d.Pending())

	clock.Advance(500 * time.Millisecond)
	require.Equal(t, []string{"abcd"}, settled)
	require.False(t, d.Pending())

	clock.Advance(5 * time.Second)
	require.Equal(t, []string{"abcd"}, settled)
}

func TestHolaMundoScenario(t *testing.T) {
	clock := newManualScheduler()
	var settled []string
	d := New(DefaultQuiet, clock, func(text string) { settled = append(settled, text) })

	d.Notify("Hola")
	clock.Advance(100 * time.Millisecond)
	d.Notify("Hola mundo")
	clock.Advance(499 * time.Millisecond)
	require.Empty(t, settled)

	clock.Advance(time.Millisecond)
	require.Equal(t, []string{"Hola mundo"}, settled)
}

func TestCancelPreventsFiring(t *testing.T) {
	clock := newManualScheduler()
	fired := 0
	d := New(500*time.Millisecond, clock, func(string) { fired++ })

	d.Notify("hello")
	clock.Advance(200 * time.Millisecond)
	d.Cancel()
	clock.Advance(time.Second)
	require.Zero(t, fired)
	require.False(t, d.Pending())
}

func TestQueuedFiringIgnoredAfterCancel(t *testing.T) {
	clock := newManualScheduler()
	fired := 0
	d := New(500*time.Millisecond, clock, func(string) { fired++ })

	d.Notify("hello")
	// The timer already elapsed and its callback is queued but has not run yet.
	queued := clock.Detach()
	d.Cancel()
	for _, fn := range queued {
		fn()
	}
	require.Zero(t, fired)
}

func TestQueuedFiringIgnoredAfterNewNotify(t *testing.T) {
	clock := newManualScheduler()
	var settled []string
	d := New(500*time.Millisecond, clock, func(text string) { settled = append(settled, text) })

	d.Notify("first")
	queued := clock.Detach()
	d.Notify("second")
	for _, fn := range queued {
		fn()
	}
	require.Empty(t, settled)

	clock.Advance(500 * time.Millisecond)
	require.Equal(t, []string{"second"}, settled)
}

func TestSeparateBurstsSettleSeparately(t *testing.T) {
	clock := newManualScheduler()
	var settled []string
	d := New(500*time.Millisecond, clock, func(text string) { settled = append(settled, text) })

	d.Notify("one")
	clock.Advance(600 * time.Millisecond)
	d.Notify("one two")
	clock.Advance(600 * time.Millisecond)
	require.Equal(t, []string{"one", "one two"}, settled)
}

func TestNewDefaults(t *testing.T) {
	d := New(0, newManualScheduler(), nil)
	require.Equal(t, DefaultQuiet, d.Quiet())
	d.Notify("x")
	d.Cancel()
}

type manualTimer struct {
	scheduler *manualScheduler
	at        time.Duration
	fn        func()
	stopped   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// manualScheduler advances virtual time and runs due callbacks inline.
type manualScheduler struct {
	now    time.Duration
	timers []*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	timer := &manualTimer{scheduler: s, at: s.now + d, fn: fn}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.now += d
	sort.SliceStable(s.timers, func(i, j int) bool { return s.timers[i].at < s.timers[j].at })

	var remaining []*manualTimer
	var due []*manualTimer
	for _, timer := range s.timers {
		if timer.stopped {
			continue
		}
		if timer.at <= s.now {
			due = append(due, timer)
			continue
		}
		remaining = append(remaining, timer)
	}
	s.timers = remaining
	for _, timer := range due {
		timer.stopped = true
		timer.fn()
	}
}

// Detach removes every active timer as if it had already elapsed, returning
// the callbacks without running them.
func (s *manualScheduler) Detach() []func() {
	var out []func()
	for _, timer := range s.timers {
		if !timer.stopped {
			timer.stopped = true
			out = append(out, timer.fn)
		}
	}
	s.timers = nil
	return out
}
