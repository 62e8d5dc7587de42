package models

import (
	"math"
	"time"
)

// Memory source labels, in probe priority order
const (
	SourceHeap         = "Chrome/Edge"
	SourceProcess      = "Firefox"
	SourceDeviceMemory = "Device Memory"
	SourceNone         = "N/A"
)

// ClockState holds startup milestones relative to StartTime
type ClockState struct {
	StartTime     time.Time     `json:"startTime"`
	InitTime      time.Duration `json:"initTime"`
	PaneReadyTime time.Duration `json:"paneReadyTime"`
	TotalAppTime  time.Duration `json:"totalAppTime"`
}

// MemoryInfo holds a memory snapshot. Sizes are megabytes formatted
// with two decimals; Available is qualitative ("8GB").
type MemoryInfo struct {
	Used      string `json:"used,omitempty"`
	Total     string `json:"total,omitempty"`
	Limit     string `json:"limit,omitempty"`
	Available string `json:"available,omitempty"`
	Source    string `json:"source,omitempty"`
}

// CPUInfo holds CPU identification and the synthetic load proxy.
// Nil and empty fields were not reported by the environment.
type CPUInfo struct {
	Cores          *int   `json:"cores,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Usage          *int   `json:"usage,omitempty"`
	ProcessingTime string `json:"processingTime,omitempty"`
}

// Merge shallow-merges next over c: fields set in next overwrite,
// fields unset in next keep their value from c.
func (c CPUInfo) Merge(next CPUInfo) CPUInfo {
	merged := c
	if next.Cores != nil {
		merged.Cores = next.Cores
	}
	if next.UserAgent != "" {
		merged.UserAgent = next.UserAgent
	}
	if next.Platform != "" {
		merged.Platform = next.Platform
	}
	if next.Usage != nil {
		merged.Usage = next.Usage
	}
	if next.ProcessingTime != "" {
		merged.ProcessingTime = next.ProcessingTime
	}
	return merged
}

// GPUInfo holds graphics context parameters and the synthetic GPU load
// proxy. The proxy fields are filled in asynchronously once a draw
// loop completes.
type GPUInfo struct {
	Vendor                 string `json:"vendor,omitempty"`
	Renderer               string `json:"renderer,omitempty"`
	WebGLVersion           string `json:"webglVersion,omitempty"`
	ShadingLanguageVersion string `json:"shadingLanguageVersion,omitempty"`
	MaxTextureSize         *int   `json:"maxTextureSize,omitempty"`
	MaxViewportDims        []int  `json:"maxViewportDims,omitempty"`
	MaxRenderbufferSize    *int   `json:"maxRenderbufferSize,omitempty"`
	GPUUsage               *int   `json:"gpuUsage,omitempty"`
	RenderTime             string `json:"renderTime,omitempty"`
	FramesRendered         *int   `json:"framesRendered,omitempty"`
}

// IsEmpty reports whether no field has been populated
func (g GPUInfo) IsEmpty() bool {
	return g.Vendor == "" && g.Renderer == "" && g.WebGLVersion == "" &&
		g.ShadingLanguageVersion == "" && g.MaxTextureSize == nil &&
		len(g.MaxViewportDims) == 0 && g.MaxRenderbufferSize == nil &&
		g.GPUUsage == nil && g.RenderTime == "" && g.FramesRendered == nil
}

// DisplayMetrics holds screen, viewport and page load timings
type DisplayMetrics struct {
	ScreenWidth      *int     `json:"screenWidth,omitempty"`
	ScreenHeight     *int     `json:"screenHeight,omitempty"`
	ColorDepth       *int     `json:"colorDepth,omitempty"`
	PixelDepth       *int     `json:"pixelDepth,omitempty"`
	ViewportWidth    *int     `json:"viewportWidth,omitempty"`
	ViewportHeight   *int     `json:"viewportHeight,omitempty"`
	DOMContentLoaded *float64 `json:"domContentLoaded,omitempty"`
	LoadComplete     *float64 `json:"loadComplete,omitempty"`
}

// FrameState holds the latest frame timing
type FrameState struct {
	FrameTime time.Duration `json:"frameTime"`
	FPS       float64       `json:"fps"`
}

// NewFrameState derives FPS from the delta since the previous frame.
// A zero delta yields +Inf, which is kept as is.
func NewFrameState(delta time.Duration) FrameState {
	ms := float64(delta) / float64(time.Millisecond)
	return FrameState{FrameTime: delta, FPS: 1000 / ms}
}

// Finite reports whether FPS is displayable
func (f FrameState) Finite() bool {
	return !math.IsInf(f.FPS, 0) && !math.IsNaN(f.FPS)
}

// State is everything the sampler exposes to its host view
type State struct {
	Clock       ClockState     `json:"clock"`
	Loading     bool           `json:"loading"`
	MemoryUsage string         `json:"memoryUsage"`
	Memory      MemoryInfo     `json:"memory"`
	CPU         CPUInfo        `json:"cpu"`
	GPU         GPUInfo        `json:"gpu"`
	Display     DisplayMetrics `json:"display"`
	Frame       FrameState     `json:"frame"`
	CPUUsage    int            `json:"cpuUsage"`
	GPUUsage    int            `json:"gpuUsage"`
}

// Clone returns a copy that shares no slices or pointers with s
func (s State) Clone() State {
	out := s
	out.CPU.Cores = cloneInt(s.CPU.Cores)
	out.CPU.Usage = cloneInt(s.CPU.Usage)
	out.GPU.MaxTextureSize = cloneInt(s.GPU.MaxTextureSize)
	out.GPU.MaxRenderbufferSize = cloneInt(s.GPU.MaxRenderbufferSize)
	out.GPU.GPUUsage = cloneInt(s.GPU.GPUUsage)
	out.GPU.FramesRendered = cloneInt(s.GPU.FramesRendered)
	if s.GPU.MaxViewportDims != nil {
		out.GPU.MaxViewportDims = append([]int(nil), s.GPU.MaxViewportDims...)
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }
