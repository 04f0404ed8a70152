// Package debounce coalesces bursts of calls into a single deferred task
// that runs once input has been quiet for a window.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiescence window used when none is given.
const DefaultWindow = 300 * time.Millisecond

type Timer interface {
	Stop() bool
}

// Scheduler defers f by d. Production code uses System; tests drive a
// ManualScheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var System Scheduler = systemScheduler{}

// Debouncer holds at most one pending task. Each Trigger replaces the
// pending task and restarts the window; a replaced task never runs.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	sched   Scheduler
	timer   Timer
	gen     uint64
	pending func()
}

func New(window time.Duration, sched Scheduler) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if sched == nil {
		sched = System
	}
	return &Debouncer{window: window, sched: sched}
}

func (d *Debouncer) Window() time.Duration {
	return d.window
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.pending = fn
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.window, func() { d.fire(gen) })
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Flush runs the pending task immediately instead of waiting for the window.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// stopLocked invalidates the current generation so a timer that already
// fired but has not taken the lock yet becomes a no-op.
func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.gen++
	d.mu.Unlock()

	fn()
}
