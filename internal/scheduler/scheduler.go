// Package scheduler runs a callback at a fixed cadence and hands back a
// disposal handle. Stopping the handle is synchronous: once Stop returns the
// callback is not running and will never run again.
package scheduler

import (
	"sync"
	"time"

	"github.com/kiwari-pos/opsdash/internal/clock"
)

// Handle controls a running periodic job.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Every calls fn with the tick time every interval until the returned
// handle is stopped. The ticker is registered before Every returns, so a
// fake clock advanced right after Every will fire it.
func Every(clk clock.Clock, interval time.Duration, fn func(time.Time)) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	ticker := clk.NewTicker(interval)

	go func() {
		defer close(h.done)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case now := <-ticker.C:
				// A tick and Stop can race in the select above. Stop wins.
				select {
				case <-h.stop:
					return
				default:
				}
				fn(now)
			}
		}
	}()

	return h
}

// Stop cancels the job and waits for an in-flight callback to finish.
// Safe to call more than once. Must not be called from inside fn.
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// Done is closed once the job has fully stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
