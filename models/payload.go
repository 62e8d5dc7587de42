package models

// MetricPayload is the flat payload sent to the report endpoint
type MetricPayload struct {
	Loading        bool     `json:"loading"`
	InitTimeMS     float64  `json:"initTime"`
	PaneReadyMS    float64  `json:"paneReadyTime"`
	TotalAppTimeMS float64  `json:"totalAppTime"`
	MemoryUsage    string   `json:"memoryUsage"`
	MemorySource   string   `json:"memorySource,omitempty"`
	CPUCores       int      `json:"cpuCores,omitempty"`
	Platform       string   `json:"platform,omitempty"`
	UserAgent      string   `json:"userAgent,omitempty"`
	CPUUsage       int      `json:"cpuUsage"`
	GPUUsage       int      `json:"gpuUsage"`
	GPUVendor      string   `json:"gpuVendor,omitempty"`
	GPURenderer    string   `json:"gpuRenderer,omitempty"`
	FrameTimeMS    *float64 `json:"frameTime,omitempty"`
	FPS            *float64 `json:"fps,omitempty"`
}

// ToPayload converts State to MetricPayload. Non-finite frame values
// are left out.
func (s *State) ToPayload() *MetricPayload {
	payload := &MetricPayload{
		Loading:        s.Loading,
		InitTimeMS:     Milliseconds(s.Clock.InitTime),
		PaneReadyMS:    Milliseconds(s.Clock.PaneReadyTime),
		TotalAppTimeMS: Milliseconds(s.Clock.TotalAppTime),
		MemoryUsage:    s.MemoryUsage,
		MemorySource:   s.Memory.Source,
		Platform:       s.CPU.Platform,
		UserAgent:      s.CPU.UserAgent,
		CPUUsage:       s.CPUUsage,
		GPUUsage:       s.GPUUsage,
		GPUVendor:      s.GPU.Vendor,
		GPURenderer:    s.GPU.Renderer,
	}
	if s.CPU.Cores != nil {
		payload.CPUCores = *s.CPU.Cores
	}
	if s.Frame.FrameTime > 0 && s.Frame.Finite() {
		payload.FrameTimeMS = Float(Milliseconds(s.Frame.FrameTime))
		payload.FPS = Float(s.Frame.FPS)
	}
	return payload
}
