// Package clock runs the repeating countdown tick for timed games.
package clock

import (
	"context"
	"time"
)

// Timer is a running repeating tick. The zero value is not usable; use Start.
type Timer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start calls fn every interval until fn returns false, Stop is called, or
// parent is cancelled. fn runs on the timer's own goroutine.
func Start(parent context.Context, interval time.Duration, fn func() bool) *Timer {
	ctx, cancel := context.WithCancel(parent)
	t := &Timer{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// A Stop racing with the tick wins.
				if ctx.Err() != nil {
					return
				}
				if !fn() {
					return
				}
			}
		}
	}()
	return t
}

// Stop cancels the timer. It does not wait for a tick in flight; it is safe
// to call from fn and more than once.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.cancel()
}

// Done is closed once the timer goroutine has exited.
func (t *Timer) Done() <-chan struct{} { return t.done }
