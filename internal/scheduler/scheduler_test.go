package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiwari-pos/opsdash/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEvery_FiresOnEachInterval(t *testing.T) {
	clk := clock.Fake(epoch)
	ticks := make(chan time.Time, 8)

	h := Every(clk, time.Second, func(now time.Time) { ticks <- now })
	defer h.Stop()

	for i := 1; i <= 3; i++ {
		clk.Advance(time.Second)
		select {
		case got := <-ticks:
			if want := epoch.Add(time.Duration(i) * time.Second); !got.Equal(want) {
				t.Errorf("tick %d at %v, want %v", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("tick %d did not fire", i)
		}
	}
}

func TestStop_NoCallbacksAfterReturn(t *testing.T) {
	clk := clock.Fake(epoch)
	var calls atomic.Int32

	h := Every(clk, time.Second, func(time.Time) { calls.Add(1) })
	h.Stop()

	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Fatalf("callback ran %d times after Stop, want 0", n)
	}
	if clk.Pending() != 0 {
		t.Fatalf("ticker still registered after Stop: %d pending", clk.Pending())
	}
}

func TestStop_WaitsForInFlightCallback(t *testing.T) {
	clk := clock.Fake(epoch)
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	h := Every(clk, time.Second, func(time.Time) {
		close(started)
		<-release
		finished.Store(true)
	})

	clk.Advance(time.Second)
	<-started

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while callback was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after callback finished")
	}
	if !finished.Load() {
		t.Fatal("callback did not finish before Stop returned")
	}
}

func TestStop_Idempotent(t *testing.T) {
	h := Every(clock.Fake(epoch), time.Second, func(time.Time) {})
	h.Stop()
	h.Stop()

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}
