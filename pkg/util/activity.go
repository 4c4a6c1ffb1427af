package util

import (
	"sync"
	"time"
)

// ActivityTimer tracks whether a signal is live. Every Touch restarts the
// countdown; once the signal has been quiet for the timeout, onIdle runs on
// the timer goroutine.
//
// Example usage:
//
//	keyed := NewActivityTimer(500*time.Millisecond, func() { log("unkeyed") })
//	defer keyed.Stop()
//
//	for pkt := range packets {
//	    if keyed.Touch() {
//	        log("keyed")
//	    }
//	}
type ActivityTimer struct {
	timeout time.Duration
	onIdle  func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	active  bool
	stopped bool
}

// NewActivityTimer returns an idle timer.
func NewActivityTimer(timeout time.Duration, onIdle func()) *ActivityTimer {
	if onIdle == nil {
		onIdle = func() {}
	}

	return &ActivityTimer{
		timeout: timeout,
		onIdle:  onIdle,
	}
}

// Touch records activity. It reports true when the timer was idle before
// the call.
func (a *ActivityTimer) Touch() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return false
	}

	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.timeout, func() { a.fire(gen) })

	wasIdle := !a.active
	a.active = true

	return wasIdle
}

// Expire ends the active period now without calling onIdle. It reports true
// when the timer was active.
func (a *ActivityTimer) Expire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.expireLocked()
}

// Active reports whether the signal is live.
func (a *ActivityTimer) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.active
}

// Stop cancels any pending expiry. Further calls to Touch are no-ops. It is
// safe to call Stop multiple times.
func (a *ActivityTimer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.expireLocked()
	a.stopped = true
}

func (a *ActivityTimer) expireLocked() bool {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	wasActive := a.active
	a.active = false

	return wasActive
}

func (a *ActivityTimer) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || !a.active {
		a.mu.Unlock()
		return
	}
	a.active = false
	a.timer = nil
	a.mu.Unlock()

	a.onIdle()
}
