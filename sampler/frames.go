package sampler

import (
	"sync"
	"time"

	"perfmetrics-agent/clock"
)

// FrameScheduler delivers display-refresh callbacks. RequestFrame
// schedules callback for the next frame and returns a func that
// cancels it if it has not run yet.
type FrameScheduler interface {
	RequestFrame(callback func(now time.Time)) (cancel func())
}

// ClockFrames emits frames at a fixed rate from a Clock
type ClockFrames struct {
	clock    clock.Clock
	interval time.Duration
}

// NewClockFrames returns a scheduler ticking rate times per second
func NewClockFrames(c clock.Clock, rate int) *ClockFrames {
	if rate <= 0 {
		rate = defaultFrameRate
	}
	return &ClockFrames{clock: c, interval: time.Second / time.Duration(rate)}
}

// Interval returns the time between frames
func (f *ClockFrames) Interval() time.Duration { return f.interval }

func (f *ClockFrames) RequestFrame(callback func(now time.Time)) func() {
	timer := f.clock.AfterFunc(f.interval, func() { callback(f.clock.Now()) })
	return func() { timer.Stop() }
}

// task is a cancellable self-rescheduling loop. Each turn hands its
// next pending callback to schedule; Stop cancels it and runs cleanup
// once.
type task struct {
	mu      sync.Mutex
	stopped bool
	cancel  func()
	cleanup func()
	once    sync.Once
}

func newTask(cleanup func()) *task {
	return &task{cleanup: cleanup}
}

// schedule records the cancel func of the next turn. If the task was
// stopped meanwhile, the turn is cancelled right away.
func (t *task) schedule(cancel func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		cancel()
		return
	}
	t.cancel = cancel
	t.mu.Unlock()
}

// Stopped reports whether the loop should stop
func (t *task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stop cancels the pending turn and releases resources
func (t *task) Stop() {
	t.mu.Lock()
	t.stopped = true
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.finish()
}

// finish runs cleanup once, whether the loop ended or was stopped
func (t *task) finish() {
	t.once.Do(func() {
		if t.cleanup != nil {
			t.cleanup()
		}
	})
}
