package sampler

import (
	"errors"
	"time"

	"perfmetrics-agent/collector"
	"perfmetrics-agent/models"
)

// GPUProxy is the immediate result of MeasureGPUProxy. Pending means a
// draw loop was started and its score will appear in the state.
type GPUProxy struct {
	Usage   int
	Error   string
	Pending bool
}

// MeasureFramePerformance is one frame loop step: it records the delta
// since the previous step as the frame time.
func (s *MetricsSampler) MeasureFramePerformance(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Frame = models.NewFrameState(now.Sub(s.lastFrame))
	s.lastFrame = now
	s.publishLocked()
}

func (s *MetricsSampler) startFrameLoop() {
	t := newTask(nil)
	if !s.adopt(&s.frameTask, t) {
		return
	}

	var step func(now time.Time)
	step = func(now time.Time) {
		if t.Stopped() {
			return
		}
		s.MeasureFramePerformance(now)
		t.schedule(s.frames.RequestFrame(step))
	}
	t.schedule(s.frames.RequestFrame(step))
}

// MeasureGPUProxy compiles the probe shaders, issues the first draw,
// and keeps drawing once per frame until all probe draws are done. The
// score is written to the GPU snapshot when the loop finishes, so it
// is not available when this returns. Setup failures are logged and
// returned with zero usage. A new call cancels a loop still running.
func (s *MetricsSampler) MeasureGPUProxy() GPUProxy {
	start := s.clock.Now()

	probe, err := collector.NewGPUProbe(s.env)
	if err != nil {
		if errors.Is(err, collector.ErrGraphicsUnavailable) {
			return GPUProxy{Error: collector.ErrGraphicsUnavailable.Error()}
		}
		s.logger.Warn("GPU measurement failed", "error", err)
		return GPUProxy{Error: err.Error()}
	}

	t := newTask(probe.Release)
	s.mu.Lock()
	previous := s.gpuTask
	s.gpuTask = t
	s.mu.Unlock()
	if previous != nil {
		previous.Stop()
	}

	var step func(now time.Time) error
	step = func(now time.Time) error {
		if t.Stopped() {
			return nil
		}
		done, err := probe.Draw(now.Sub(s.startTime()))
		if err != nil {
			s.logger.Warn("GPU measurement draw failed", "error", err, "frames", probe.Frames())
			s.endGPUTask(t)
			return err
		}
		if !done {
			t.schedule(s.frames.RequestFrame(func(now time.Time) { _ = step(now) }))
			return nil
		}

		elapsed := s.clock.Now().Sub(start)
		usage := collector.GPUUsageScore(elapsed)
		s.mu.Lock()
		s.state.GPUUsage = usage
		s.state.GPU.GPUUsage = models.Int(usage)
		s.state.GPU.RenderTime = models.FormatMillis(elapsed)
		s.state.GPU.FramesRendered = models.Int(probe.Frames())
		s.publishLocked()
		s.mu.Unlock()

		s.endGPUTask(t)
		return nil
	}

	if err := step(start); err != nil {
		return GPUProxy{Error: err.Error()}
	}
	return GPUProxy{Pending: true}
}

// endGPUTask releases a finished draw loop and clears it if current
func (s *MetricsSampler) endGPUTask(t *task) {
	s.mu.Lock()
	if s.gpuTask == t {
		s.gpuTask = nil
	}
	s.mu.Unlock()
	t.finish()
}

func (s *MetricsSampler) startTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clock.StartTime
}
