package collector

import "errors"

// ErrGraphicsUnavailable is returned when no graphics context can be created
var ErrGraphicsUnavailable = errors.New("graphics context unavailable")

// NavigatorInfo identifies the device. Zero values mean not reported.
type NavigatorInfo struct {
	HardwareConcurrency int
	UserAgent           string
	Platform            string
}

// HeapMemory is the used/total/limit memory shape, in bytes
type HeapMemory struct {
	Used  uint64 `yaml:"used"`
	Total uint64 `yaml:"total"`
	Limit uint64 `yaml:"limit"`
}

// ProcessMemory is the used/total memory shape, in bytes
type ProcessMemory struct {
	Used  uint64 `yaml:"used"`
	Total uint64 `yaml:"total"`
}

// ScreenInfo holds physical screen geometry
type ScreenInfo struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	ColorDepth int `yaml:"color_depth"`
	PixelDepth int `yaml:"pixel_depth"`
}

// ViewportInfo holds the visible area of the hosting view
type ViewportInfo struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// NavigationTiming holds page load lifecycle timestamps in ms
type NavigationTiming struct {
	DOMContentLoadedStart float64 `yaml:"dom_content_loaded_start"`
	DOMContentLoadedEnd   float64 `yaml:"dom_content_loaded_end"`
	LoadStart             float64 `yaml:"load_start"`
	LoadEnd               float64 `yaml:"load_end"`
}

// Environment is the set of read-only data sources the sampler probes.
// Every source is optional: the bool results report availability.
type Environment interface {
	Navigator() NavigatorInfo
	HeapMemory() (HeapMemory, bool)
	ProcessMemory() (ProcessMemory, bool)
	DeviceMemory() (float64, bool)
	Screen() (ScreenInfo, bool)
	Viewport() (ViewportInfo, bool)
	NavigationTiming() (NavigationTiming, bool)

	// GraphicsContext returns a fresh context, or ErrGraphicsUnavailable.
	GraphicsContext() (GraphicsContext, error)
}

// GraphicsContext is a 3D rendering context
type GraphicsContext interface {
	// DebugRendererInfo returns unmasked vendor and renderer strings
	// when the debug extension is exposed.
	DebugRendererInfo() (vendor, renderer string, ok bool)
	Version() string
	ShadingLanguageVersion() string
	MaxTextureSize() (int, bool)
	MaxViewportDims() ([2]int, bool)
	MaxRenderbufferSize() (int, bool)

	// CompileProgram compiles and links a vertex/fragment shader pair
	// and makes it current.
	CompileProgram(vertexSource, fragmentSource string) (Program, error)
}

// Program is a linked shader program bound to a quad buffer
type Program interface {
	// Upload copies 2D vertex positions into the program's array buffer.
	Upload(positions []float32) error
	// Draw sets the time uniform and submits one triangle-strip draw.
	Draw(seconds float64) error
	Release()
}
