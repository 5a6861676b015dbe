package search

import (
	"sync"
	"time"
)

// Debouncer delays an action until calls have been quiet for the wait
// interval. Only the last call inside a window runs, with its argument;
// earlier calls are dropped.
//
// Construct one Debouncer per input stream and call it many times. A fresh
// Debouncer per call never cancels anything.
type Debouncer[T any] struct {
	wait   time.Duration
	action func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer that runs action after wait.
func NewDebouncer[T any](wait time.Duration, action func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, action: action}
}

// Call schedules action(arg), replacing any pending call.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if gen != d.gen || d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.action(arg)
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels the pending call and ignores every later Call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
