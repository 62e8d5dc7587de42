// Package clock provides an injectable time source so the sampler's
// timers and measurements can run against real time in production and
// a deterministic fake in tests.
package clock

import "time"

// Clock abstracts the time operations the sampler needs
type Clock interface {
	// Now returns the current time. Durations measured between two
	// Now calls use the monotonic reading when the clock is real.
	Now() time.Time

	// AfterFunc calls f once after d elapses. The returned Timer can
	// cancel the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending one-shot callback
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the callback from running. Returns false if it already
// ran or was stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stopFunc == nil {
		return false
	}
	return t.stopFunc()
}

// Real returns a Clock backed by the time package
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop}
}
