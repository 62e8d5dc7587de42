package sampler

import (
	"log/slog"
	"time"

	"perfmetrics-agent/clock"
)

const (
	defaultRefreshInterval = time.Second
	defaultLoadingDelay    = 100 * time.Millisecond
	defaultHardwareEvery   = 5
	defaultFrameRate       = 60
)

// Options configures a MetricsSampler. Zero values take defaults.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger

	// Frames drives the frame timing and GPU draw loops. Defaults to a
	// clock-driven scheduler at FrameRate.
	Frames    FrameScheduler
	FrameRate int

	// RefreshInterval is the period of the memory/CPU refresh loop.
	RefreshInterval time.Duration
	// LoadingDelay is how long after Mount FinishLoading runs.
	LoadingDelay time.Duration
	// HardwareEvery runs the full hardware refresh on every Nth
	// periodic tick.
	HardwareEvery int
}

func normalizeOptions(opts Options) Options {
	normalized := opts

	if normalized.Clock == nil {
		normalized.Clock = clock.Real()
	}
	if normalized.Logger == nil {
		normalized.Logger = slog.Default()
	}
	if normalized.FrameRate <= 0 {
		normalized.FrameRate = defaultFrameRate
	}
	if normalized.Frames == nil {
		normalized.Frames = NewClockFrames(normalized.Clock, normalized.FrameRate)
	}
	if normalized.RefreshInterval <= 0 {
		normalized.RefreshInterval = defaultRefreshInterval
	}
	if normalized.LoadingDelay <= 0 {
		normalized.LoadingDelay = defaultLoadingDelay
	}
	if normalized.HardwareEvery <= 0 {
		normalized.HardwareEvery = defaultHardwareEvery
	}

	return normalized
}
