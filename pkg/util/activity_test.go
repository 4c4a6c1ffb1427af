package util

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestActivityTimer(t *testing.T) {
	t.Run("fires after timeout", func(t *testing.T) {
		fired := make(chan struct{}, 1)
		a := NewActivityTimer(50*time.Millisecond, func() { fired <- struct{}{} })
		defer a.Stop()

		if !a.Touch() {
			t.Fatal("first Touch should report a rising edge")
		}

		select {
		case <-fired:
			// Expected
		case <-time.After(200 * time.Millisecond):
			t.Fatal("timer did not fire within expected time")
		}

		if a.Active() {
			t.Fatal("timer should be idle after firing")
		}
	})

	t.Run("touch keeps it alive", func(t *testing.T) {
		var fired atomic.Int32
		a := NewActivityTimer(50*time.Millisecond, func() { fired.Add(1) })
		defer a.Stop()

		a.Touch()
		for i := 0; i < 4; i++ {
			time.Sleep(20 * time.Millisecond)
			if a.Touch() {
				t.Fatal("Touch while active should not report a rising edge")
			}
		}

		if fired.Load() != 0 {
			t.Fatal("timer fired while being touched")
		}

		time.Sleep(150 * time.Millisecond)
		if fired.Load() != 1 {
			t.Fatalf("timer fired %d times, want 1", fired.Load())
		}
	})

	t.Run("expire suppresses callback", func(t *testing.T) {
		var fired atomic.Int32
		a := NewActivityTimer(30*time.Millisecond, func() { fired.Add(1) })
		defer a.Stop()

		a.Touch()
		if !a.Expire() {
			t.Fatal("Expire should report the timer was active")
		}
		if a.Expire() {
			t.Fatal("second Expire should report idle")
		}

		time.Sleep(100 * time.Millisecond)
		if fired.Load() != 0 {
			t.Fatal("callback ran after Expire")
		}
	})

	t.Run("touch after stop is no-op", func(t *testing.T) {
		var fired atomic.Int32
		a := NewActivityTimer(30*time.Millisecond, func() { fired.Add(1) })
		a.Stop()
		a.Stop()

		if a.Touch() {
			t.Fatal("Touch after Stop should not report a rising edge")
		}

		time.Sleep(100 * time.Millisecond)
		if fired.Load() != 0 {
			t.Fatal("callback ran after Stop")
		}
	})
}
