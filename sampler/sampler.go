// Package sampler owns the metrics state exposed to a hosting view. It
// samples memory, a synthetic CPU load proxy, a synthetic GPU load
// proxy, display info and frame timing, and keeps them fresh with a
// frame loop and a periodic refresh loop tied to Mount and Unmount.
//
// The CPU and GPU "usage" values are load proxies scored from how long
// a fixed workload takes. They are not OS utilization figures.
package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"perfmetrics-agent/clock"
	"perfmetrics-agent/collector"
	"perfmetrics-agent/models"
)

// ErrAlreadyMounted is returned by Mount on a mounted sampler
var ErrAlreadyMounted = errors.New("sampler already mounted")

// MetricsSampler samples environment metrics into an observable State.
// All methods are safe for concurrent use; state mutations are
// serialized.
type MetricsSampler struct {
	env    collector.Environment
	clock  clock.Clock
	logger *slog.Logger
	frames FrameScheduler

	refreshInterval time.Duration
	loadingDelay    time.Duration
	hardwareEvery   int

	mu          sync.Mutex
	state       models.State
	lastFrame   time.Time
	ticks       int
	mounted     bool
	frameTask   *task
	refreshTask *task
	gpuTask     *task
	finishTimer *clock.Timer
	subscribers map[int]chan models.State
	nextSubID   int
}

// New captures the start time and returns an unmounted sampler
func New(env collector.Environment, opts Options) *MetricsSampler {
	opts = normalizeOptions(opts)

	s := &MetricsSampler{
		env:             env,
		clock:           opts.Clock,
		logger:          opts.Logger,
		frames:          opts.Frames,
		refreshInterval: opts.RefreshInterval,
		loadingDelay:    opts.LoadingDelay,
		hardwareEvery:   opts.HardwareEvery,
		subscribers:     make(map[int]chan models.State),
	}

	now := s.clock.Now()
	s.state = models.State{
		Clock:       models.ClockState{StartTime: now},
		Loading:     true,
		MemoryUsage: models.SourceNone,
	}
	s.lastFrame = now

	s.logger.Info("starting initialization timing")
	return s
}

// State returns a copy of the current state
func (s *MetricsSampler) State() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives the latest State after
// every change. Slow readers only see the newest value. The returned
// func unsubscribes and closes the channel.
func (s *MetricsSampler) Subscribe() (<-chan models.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	channel := make(chan models.State, 1)
	s.subscribers[id] = channel

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(channel)
		})
	}
}

// publishLocked must be called with s.mu held
func (s *MetricsSampler) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snapshot := s.state.Clone()
	for _, channel := range s.subscribers {
		select {
		case channel <- snapshot:
			continue
		default:
		}
		// Replace the stale value.
		select {
		case <-channel:
		default:
		}
		select {
		case channel <- snapshot:
		default:
		}
	}
}

func (s *MetricsSampler) elapsed() time.Duration {
	d := s.clock.Now().Sub(s.state.Clock.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Mount runs the startup protocol: initial memory and hardware refresh,
// frame loop start, FinishLoading after the loading delay, periodic
// refresh loop start.
func (s *MetricsSampler) Mount() error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	mountTime := s.elapsed()
	s.mu.Unlock()

	s.logger.Info("component mounted", "mount_ms", models.FormatMillis(mountTime))

	s.UpdateMemoryMetrics()
	s.UpdateHardwareMetrics()

	s.startFrameLoop()

	finish := s.clock.AfterFunc(s.loadingDelay, s.FinishLoading)
	s.mu.Lock()
	if s.mounted {
		s.finishTimer = finish
	} else {
		finish.Stop()
	}
	s.mu.Unlock()

	s.startRefreshLoop()
	return nil
}

// Unmount stops every loop and pending callback. Safe to call more
// than once.
func (s *MetricsSampler) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	tasks := []*task{s.frameTask, s.refreshTask, s.gpuTask}
	finish := s.finishTimer
	s.frameTask, s.refreshTask, s.gpuTask, s.finishTimer = nil, nil, nil, nil
	s.mu.Unlock()

	finish.Stop()
	for _, t := range tasks {
		if t != nil {
			t.Stop()
		}
	}
	s.logger.Info("component unmounted")
}

// Run mounts the sampler and unmounts it when ctx is done
func (s *MetricsSampler) Run(ctx context.Context) error {
	if err := s.Mount(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Unmount()
	return nil
}

// OnPaneReady records the elapsed time since construction
func (s *MetricsSampler) OnPaneReady() {
	s.mu.Lock()
	s.state.Clock.PaneReadyTime = s.elapsed()
	ready := s.state.Clock.PaneReadyTime
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("pane ready", "elapsed_ms", models.FormatMillis(ready))
}

// FinishLoading marks loading complete, records init and total app
// time, and refreshes memory and hardware metrics.
func (s *MetricsSampler) FinishLoading() {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Clock.InitTime = s.elapsed()
	s.state.Clock.TotalAppTime = s.state.Clock.InitTime
	initTime := s.state.Clock.InitTime
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("initialization complete", "init_ms", models.FormatMillis(initTime))
	s.logger.Info("total application time", "total_ms", models.FormatMillis(initTime))

	s.UpdateMemoryMetrics()
	s.UpdateHardwareMetrics()

	state := s.State()
	memoryAttrs := []any{"usage", state.MemoryUsage, "source", state.Memory.Source}
	if heap, ok := s.env.HeapMemory(); ok {
		memoryAttrs = append(memoryAttrs, "heap", humanize.IBytes(heap.Used)+" / "+humanize.IBytes(heap.Limit))
	}
	s.logger.Info("memory used", memoryAttrs...)
	s.logger.Info("cpu info", "cpu", state.CPU)
	s.logger.Info("gpu info", "gpu", state.GPU)
}

// MemoryInfo builds a fresh memory snapshot
func (s *MetricsSampler) MemoryInfo() models.MemoryInfo {
	return collector.MemoryInfo(s.env)
}

// MemoryUsage returns the memory display string, or "N/A"
func (s *MetricsSampler) MemoryUsage() string {
	return collector.MemoryUsage(s.MemoryInfo())
}

// CPUInfo builds a fresh CPU snapshot. It runs the CPU proxy workload
// and blocks for its duration.
func (s *MetricsSampler) CPUInfo() models.CPUInfo {
	return collector.CPUInfo(s.env, s.clock)
}

// MeasureCPUProxy runs the synthetic CPU workload on the caller
func (s *MetricsSampler) MeasureCPUProxy() collector.CPUProxy {
	return collector.MeasureCPUProxy(s.clock)
}

// GPUInfo builds a fresh GPU snapshot and, when a graphics context is
// available, starts a GPU proxy measurement whose result lands in the
// state later.
func (s *MetricsSampler) GPUInfo() models.GPUInfo {
	info, ok := collector.GPUInfo(s.env, s.logger)
	if ok {
		s.MeasureGPUProxy()
	}
	return info
}

// PerformanceMetrics builds a fresh display snapshot
func (s *MetricsSampler) PerformanceMetrics() models.DisplayMetrics {
	return collector.DisplayMetrics(s.env)
}

// UpdateMemoryMetrics overwrites the memory snapshot and usage string
func (s *MetricsSampler) UpdateMemoryMetrics() {
	info := s.MemoryInfo()
	usage := collector.MemoryUsage(info)

	s.mu.Lock()
	s.state.Memory = info
	s.state.MemoryUsage = usage
	s.publishLocked()
	s.mu.Unlock()
}

// UpdateHardwareMetrics overwrites the CPU, GPU and display snapshots,
// then starts a GPU proxy measurement if a context is available.
func (s *MetricsSampler) UpdateHardwareMetrics() {
	cpu := s.CPUInfo()
	gpu, hasGraphics := collector.GPUInfo(s.env, s.logger)
	display := s.PerformanceMetrics()

	s.mu.Lock()
	s.state.CPU = cpu
	if cpu.Usage != nil {
		s.state.CPUUsage = *cpu.Usage
	}
	s.state.GPU = gpu
	s.state.Display = display
	s.publishLocked()
	s.mu.Unlock()

	if hasGraphics {
		s.MeasureGPUProxy()
	}
}

// refresh is one periodic loop turn. It reports whether this turn is
// due a full hardware refresh.
func (s *MetricsSampler) refresh() bool {
	memory := s.MemoryInfo()
	usage := collector.MemoryUsage(memory)
	cpu := s.CPUInfo()

	s.mu.Lock()
	if usage != models.SourceNone {
		s.state.Memory = memory
		s.state.MemoryUsage = usage
	}
	s.state.CPU = s.state.CPU.Merge(cpu)
	if cpu.Usage != nil {
		s.state.CPUUsage = *cpu.Usage
	}
	s.ticks++
	hardware := s.ticks%s.hardwareEvery == 0
	s.publishLocked()
	s.mu.Unlock()

	return hardware
}

func (s *MetricsSampler) startRefreshLoop() {
	t := newTask(nil)
	if !s.adopt(&s.refreshTask, t) {
		return
	}

	var turn func()
	turn = func() {
		if t.Stopped() {
			return
		}
		// Schedule first so the cadence does not drift by the
		// duration of the turn.
		next := s.clock.AfterFunc(s.refreshInterval, turn)
		t.schedule(func() { next.Stop() })
		if s.refresh() && !t.Stopped() {
			s.UpdateHardwareMetrics()
		}
	}

	first := s.clock.AfterFunc(s.refreshInterval, turn)
	t.schedule(func() { first.Stop() })
}

// adopt stores t in slot while mounted, so Unmount will stop it. It
// reports false, and stops t, when the sampler is not mounted.
func (s *MetricsSampler) adopt(slot **task, t *task) bool {
	s.mu.Lock()
	mounted := s.mounted
	if mounted {
		*slot = t
	}
	s.mu.Unlock()

	if !mounted {
		t.Stop()
	}
	return mounted
}

// Ticks returns how many periodic refreshes have run
func (s *MetricsSampler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
