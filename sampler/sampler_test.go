package sampler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"perfmetrics-agent/clock"
	"perfmetrics-agent/collector"
	"perfmetrics-agent/models"
)

const megabyte = 1024 * 1024

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// testEnvironment wraps a fixture with switches the tests flip between
// refreshes, and counts display probes to observe hardware refreshes.
type testEnvironment struct {
	*collector.FixtureEnvironment

	mu          sync.Mutex
	navigator   *collector.NavigatorInfo
	heapOff     bool
	screenCalls int
}

func newTestEnvironment(graphics *collector.FixtureGraphics) *testEnvironment {
	return &testEnvironment{FixtureEnvironment: collector.NewFixtureEnvironment(collector.Fixture{
		Navigator: collector.FixtureNavigator{
			HardwareConcurrency: 8,
			UserAgent:           "Mozilla/5.0 (X11; Linux x86_64)",
			Platform:            "Linux x86_64",
		},
		HeapMemory: &collector.HeapMemory{Used: 10 * megabyte, Total: 50 * megabyte, Limit: 100 * megabyte},
		Screen:     &collector.ScreenInfo{Width: 1920, Height: 1080, ColorDepth: 24, PixelDepth: 24},
		Viewport:   &collector.ViewportInfo{Width: 1280, Height: 720},
		Graphics:   graphics,
	})}
}

func defaultGraphics() *collector.FixtureGraphics {
	return &collector.FixtureGraphics{
		Vendor:         "Intel Inc.",
		Renderer:       "Intel Iris OpenGL Engine",
		Version:        "WebGL 1.0",
		MaxTextureSize: 16384,
	}
}

func (e *testEnvironment) Navigator() collector.NavigatorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.navigator != nil {
		return *e.navigator
	}
	return e.FixtureEnvironment.Navigator()
}

func (e *testEnvironment) HeapMemory() (collector.HeapMemory, bool) {
	e.mu.Lock()
	off := e.heapOff
	e.mu.Unlock()
	if off {
		return collector.HeapMemory{}, false
	}
	return e.FixtureEnvironment.HeapMemory()
}

func (e *testEnvironment) Screen() (collector.ScreenInfo, bool) {
	e.mu.Lock()
	e.screenCalls++
	e.mu.Unlock()
	return e.FixtureEnvironment.Screen()
}

func (e *testEnvironment) hardwareRefreshes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screenCalls
}

func newTestSampler(t *testing.T, env collector.Environment) (*MetricsSampler, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	s := New(env, Options{
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return s, fake
}

func frameInterval() time.Duration { return time.Second / defaultFrameRate }

func TestNewInitialState(t *testing.T) {
	s, _ := newTestSampler(t, newTestEnvironment(nil))
	state := s.State()

	if !state.Clock.StartTime.Equal(epoch) {
		t.Errorf("StartTime = %v, want %v", state.Clock.StartTime, epoch)
	}
	if !state.Loading {
		t.Error("Loading = false before FinishLoading")
	}
	if state.MemoryUsage != "N/A" {
		t.Errorf("MemoryUsage = %q, want N/A", state.MemoryUsage)
	}
	if state.Clock.InitTime != 0 || state.Clock.PaneReadyTime != 0 || state.Clock.TotalAppTime != 0 {
		t.Errorf("clock milestones set before any event: %+v", state.Clock)
	}
}

func TestMountStartupProtocol(t *testing.T) {
	env := newTestEnvironment(defaultGraphics())
	s, fake := newTestSampler(t, env)

	if err := s.Mount(); err != nil {
		t.Fatalf("Mount() err = %v", err)
	}
	defer s.Unmount()

	state := s.State()
	want := models.MemoryInfo{Used: "10.00", Total: "50.00", Limit: "100.00", Source: "Chrome/Edge"}
	if state.Memory != want {
		t.Errorf("Memory = %+v, want %+v", state.Memory, want)
	}
	if state.MemoryUsage != "10.00" {
		t.Errorf("MemoryUsage = %q, want 10.00", state.MemoryUsage)
	}
	if state.CPU.Cores == nil || *state.CPU.Cores != 8 || state.CPU.Usage == nil {
		t.Errorf("CPU = %+v", state.CPU)
	}
	if state.GPU.Vendor != "Intel Inc." {
		t.Errorf("GPU.Vendor = %q", state.GPU.Vendor)
	}
	if state.Display.ScreenWidth == nil || *state.Display.ScreenWidth != 1920 {
		t.Errorf("Display = %+v", state.Display)
	}
	if !state.Loading {
		t.Error("Loading cleared before the loading delay")
	}

	if err := s.Mount(); !errors.Is(err, ErrAlreadyMounted) {
		t.Fatalf("second Mount() err = %v, want ErrAlreadyMounted", err)
	}

	fake.Advance(defaultLoadingDelay)

	state = s.State()
	if state.Loading {
		t.Fatal("Loading still set after the loading delay")
	}
	if state.Clock.InitTime != defaultLoadingDelay {
		t.Errorf("InitTime = %v, want %v", state.Clock.InitTime, defaultLoadingDelay)
	}
	if state.Clock.TotalAppTime != state.Clock.InitTime {
		t.Errorf("TotalAppTime = %v, want %v", state.Clock.TotalAppTime, state.Clock.InitTime)
	}
	if got := env.hardwareRefreshes(); got != 2 {
		t.Errorf("hardware refreshes after FinishLoading = %d, want 2", got)
	}
}

func TestGPUProxyCompletesAcrossFrames(t *testing.T) {
	env := newTestEnvironment(defaultGraphics())
	s, fake := newTestSampler(t, env)

	result := s.MeasureGPUProxy()
	if !result.Pending || result.Error != "" {
		t.Fatalf("MeasureGPUProxy() = %+v, want pending", result)
	}
	if s.State().GPU.GPUUsage != nil {
		t.Fatal("GPU usage available synchronously")
	}

	// One draw ran inline; the remaining draws need one frame each.
	fake.Advance(time.Duration(collector.GPUProbeDraws-2) * frameInterval())
	if s.State().GPU.FramesRendered != nil {
		t.Fatal("GPU proxy finished early")
	}
	fake.Advance(frameInterval())

	state := s.State()
	if state.GPU.FramesRendered == nil || *state.GPU.FramesRendered != collector.GPUProbeDraws {
		t.Fatalf("FramesRendered = %v, want %d", state.GPU.FramesRendered, collector.GPUProbeDraws)
	}
	elapsed := time.Duration(collector.GPUProbeDraws-1) * frameInterval()
	if want := models.FormatMillis(elapsed); state.GPU.RenderTime != want {
		t.Errorf("RenderTime = %q, want %q", state.GPU.RenderTime, want)
	}
	if state.GPU.GPUUsage == nil || *state.GPU.GPUUsage != 100 || state.GPUUsage != 100 {
		t.Errorf("GPU usage = %v / %d, want 100", state.GPU.GPUUsage, state.GPUUsage)
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after the draw loop ended", fake.PendingCount())
	}
}

func TestGPUProxyRestartCancelsRunningLoop(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(defaultGraphics()))

	s.MeasureGPUProxy()
	fake.Advance(10 * frameInterval())
	s.MeasureGPUProxy()

	if got := fake.PendingCount(); got != 1 {
		t.Fatalf("PendingCount() = %d, want 1 draw loop", got)
	}
	fake.Advance(time.Duration(collector.GPUProbeDraws) * frameInterval())

	state := s.State()
	if state.GPU.FramesRendered == nil || *state.GPU.FramesRendered != collector.GPUProbeDraws {
		t.Fatalf("FramesRendered = %v, want %d", state.GPU.FramesRendered, collector.GPUProbeDraws)
	}
}

func TestGPUProxyWithoutGraphics(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))

	result := s.MeasureGPUProxy()
	if result.Usage != 0 || result.Pending || result.Error != "graphics context unavailable" {
		t.Fatalf("MeasureGPUProxy() = %+v", result)
	}
	if fake.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d, want no scheduled work", fake.PendingCount())
	}

	if info := s.GPUInfo(); !info.IsEmpty() {
		t.Fatalf("GPUInfo() = %+v, want empty", info)
	}
}

func TestGPUProxyShaderFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	fake := clock.Fake(epoch)
	graphics := defaultGraphics()
	graphics.ShaderError = "ERROR: 0:3: 'gl_FragColor' : undeclared identifier"
	s := New(newTestEnvironment(graphics), Options{
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})

	result := s.MeasureGPUProxy()
	if result.Usage != 0 || result.Pending || !strings.Contains(result.Error, "undeclared identifier") {
		t.Fatalf("MeasureGPUProxy() = %+v", result)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Fatalf("no warning logged: %q", logs.String())
	}
}

func TestRefreshLoopHardwareEveryFifthTick(t *testing.T) {
	env := newTestEnvironment(nil)
	s, fake := newTestSampler(t, env)

	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	defer s.Unmount()

	// Mount and FinishLoading each refresh hardware once.
	fake.Advance(4999 * time.Millisecond)
	if got := s.Ticks(); got != 4 {
		t.Fatalf("Ticks() = %d, want 4", got)
	}
	if got := env.hardwareRefreshes(); got != 2 {
		t.Fatalf("hardware refreshes after 4 ticks = %d, want 2", got)
	}

	fake.Advance(time.Millisecond)
	if got := env.hardwareRefreshes(); got != 3 {
		t.Fatalf("hardware refreshes after 5 ticks = %d, want 3", got)
	}

	fake.Advance(5 * time.Second)
	if got := s.Ticks(); got != 10 {
		t.Fatalf("Ticks() = %d, want 10", got)
	}
	if got := env.hardwareRefreshes(); got != 4 {
		t.Fatalf("hardware refreshes after 10 ticks = %d, want 4", got)
	}
}

func TestRefreshMergesCPUInfo(t *testing.T) {
	env := newTestEnvironment(nil)
	s, fake := newTestSampler(t, env)

	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	defer s.Unmount()
	fake.Advance(defaultLoadingDelay)

	env.mu.Lock()
	env.navigator = &collector.NavigatorInfo{HardwareConcurrency: 16}
	env.mu.Unlock()

	fake.Advance(time.Second)

	cpu := s.State().CPU
	if cpu.Platform != "Linux x86_64" {
		t.Errorf("Platform = %q, merge dropped it", cpu.Platform)
	}
	if cpu.UserAgent == "" {
		t.Error("UserAgent dropped by merge")
	}
	if cpu.Cores == nil || *cpu.Cores != 16 {
		t.Errorf("Cores = %v, want 16", cpu.Cores)
	}
	if cpu.Usage == nil || cpu.ProcessingTime == "" {
		t.Errorf("usage not refreshed: %+v", cpu)
	}
}

func TestRefreshKeepsMemoryWhenUnavailable(t *testing.T) {
	env := newTestEnvironment(nil)
	s, fake := newTestSampler(t, env)

	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	defer s.Unmount()
	fake.Advance(defaultLoadingDelay)

	env.mu.Lock()
	env.heapOff = true
	env.mu.Unlock()

	fake.Advance(time.Second)

	state := s.State()
	if state.MemoryUsage != "10.00" || state.Memory.Source != models.SourceHeap {
		t.Fatalf("periodic refresh committed N/A: %q %+v", state.MemoryUsage, state.Memory)
	}

	if got := s.MemoryUsage(); got != "N/A" {
		t.Fatalf("MemoryUsage() = %q, want N/A", got)
	}
	s.UpdateMemoryMetrics()
	if state := s.State(); state.MemoryUsage != "N/A" || state.Memory != (models.MemoryInfo{}) {
		t.Fatalf("UpdateMemoryMetrics() did not overwrite: %q %+v", state.MemoryUsage, state.Memory)
	}
}

func TestOnPaneReady(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))

	fake.Advance(250 * time.Millisecond)
	s.OnPaneReady()
	if got := s.State().Clock.PaneReadyTime; got != 250*time.Millisecond {
		t.Fatalf("PaneReadyTime = %v, want 250ms", got)
	}

	fake.Advance(50 * time.Millisecond)
	s.OnPaneReady()
	if got := s.State().Clock.PaneReadyTime; got != 300*time.Millisecond {
		t.Fatalf("PaneReadyTime = %v, want 300ms", got)
	}
}

func TestFinishLoadingRefreshesEveryCall(t *testing.T) {
	env := newTestEnvironment(nil)
	s, fake := newTestSampler(t, env)

	fake.Advance(40 * time.Millisecond)
	s.FinishLoading()
	state := s.State()
	if state.Loading || state.Clock.InitTime != 40*time.Millisecond {
		t.Fatalf("after FinishLoading: loading=%v init=%v", state.Loading, state.Clock.InitTime)
	}
	if state.MemoryUsage != "10.00" || state.CPU.Usage == nil {
		t.Fatalf("FinishLoading did not refresh: %+v", state)
	}

	fake.Advance(10 * time.Millisecond)
	s.FinishLoading()
	if got := env.hardwareRefreshes(); got != 2 {
		t.Fatalf("hardware refreshes = %d, want 2", got)
	}
	if got := s.State().Clock.InitTime; got != 50*time.Millisecond {
		t.Fatalf("InitTime = %v, want 50ms", got)
	}
}

func TestFrameLoop(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))

	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	fake.Advance(frameInterval())

	frame := s.State().Frame
	if frame.FrameTime != frameInterval() {
		t.Fatalf("FrameTime = %v, want %v", frame.FrameTime, frameInterval())
	}
	if math.Abs(frame.FPS-60) > 0.01 {
		t.Fatalf("FPS = %v, want ~60", frame.FPS)
	}

	s.Unmount()
	fake.Advance(time.Second)
	if got := s.State().Frame; got != frame {
		t.Fatalf("frame loop ran after Unmount: %+v", got)
	}
}

func TestZeroFrameDeltaIsNotFinite(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))

	s.MeasureFramePerformance(fake.Now())
	frame := s.State().Frame
	if frame.Finite() {
		t.Fatalf("FPS = %v for a zero delta, want +Inf", frame.FPS)
	}
}

func TestUnmountCancelsEverything(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(defaultGraphics()))

	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	if fake.PendingCount() == 0 {
		t.Fatal("Mount scheduled nothing")
	}

	s.Unmount()
	s.Unmount()
	if got := fake.PendingCount(); got != 0 {
		t.Fatalf("PendingCount() after Unmount = %d, want 0", got)
	}

	fake.Advance(10 * time.Second)
	state := s.State()
	if !state.Loading {
		t.Error("FinishLoading ran after Unmount")
	}
	if s.Ticks() != 0 {
		t.Errorf("Ticks() = %d after Unmount", s.Ticks())
	}

	if err := s.Mount(); err != nil {
		t.Fatalf("remount err = %v", err)
	}
	s.Unmount()
}

func TestSubscribeDeliversLatest(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))

	updates, unsubscribe := s.Subscribe()

	fake.Advance(10 * time.Millisecond)
	s.OnPaneReady()
	fake.Advance(10 * time.Millisecond)
	s.OnPaneReady()

	select {
	case state := <-updates:
		if state.Clock.PaneReadyTime != 20*time.Millisecond {
			t.Fatalf("PaneReadyTime = %v, want latest 20ms", state.Clock.PaneReadyTime)
		}
	default:
		t.Fatal("no state delivered")
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-updates; ok {
		t.Fatal("channel open after unsubscribe")
	}
	s.OnPaneReady()
}

func TestRunUnmountsOnCancel(t *testing.T) {
	s, fake := newTestSampler(t, newTestEnvironment(nil))
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mount")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
	if got := fake.PendingCount(); got != 0 {
		t.Fatalf("PendingCount() after Run = %d, want 0", got)
	}
}

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(Options{})
	if opts.RefreshInterval != time.Second || opts.LoadingDelay != 100*time.Millisecond ||
		opts.HardwareEvery != 5 || opts.FrameRate != 60 {
		t.Fatalf("defaults = %+v", opts)
	}
	if opts.Clock == nil || opts.Logger == nil || opts.Frames == nil {
		t.Fatal("nil collaborators after normalize")
	}

	frames := NewClockFrames(clock.Real(), 30)
	if frames.Interval() != time.Second/30 {
		t.Fatalf("Interval() = %v", frames.Interval())
	}
}
