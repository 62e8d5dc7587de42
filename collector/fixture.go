package collector

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture describes a browser-like environment in YAML. Omitted
// sections are reported as unavailable.
//
//	navigator:
//	  hardware_concurrency: 8
//	  user_agent: Mozilla/5.0 ...
//	  platform: Linux x86_64
//	heap_memory: {used: 10485760, total: 52428800, limit: 104857600}
//	screen: {width: 1920, height: 1080, color_depth: 24, pixel_depth: 24}
//	graphics:
//	  vendor: Intel Inc.
//	  renderer: Intel Iris OpenGL Engine
type Fixture struct {
	Navigator        FixtureNavigator  `yaml:"navigator"`
	HeapMemory       *HeapMemory       `yaml:"heap_memory"`
	ProcessMemory    *ProcessMemory    `yaml:"process_memory"`
	DeviceMemoryGB   float64           `yaml:"device_memory_gb"`
	Screen           *ScreenInfo       `yaml:"screen"`
	Viewport         *ViewportInfo     `yaml:"viewport"`
	NavigationTiming *NavigationTiming `yaml:"navigation_timing"`
	Graphics         *FixtureGraphics  `yaml:"graphics"`
}

// FixtureNavigator is the YAML form of NavigatorInfo
type FixtureNavigator struct {
	HardwareConcurrency int    `yaml:"hardware_concurrency"`
	UserAgent           string `yaml:"user_agent"`
	Platform            string `yaml:"platform"`
}

// FixtureGraphics describes a simulated graphics context. Draws are
// counted but render nothing. ShaderError makes compilation fail.
type FixtureGraphics struct {
	Vendor                 string `yaml:"vendor"`
	Renderer               string `yaml:"renderer"`
	Version                string `yaml:"version"`
	ShadingLanguageVersion string `yaml:"shading_language_version"`
	MaxTextureSize         int    `yaml:"max_texture_size"`
	MaxViewportDims        []int  `yaml:"max_viewport_dims"`
	MaxRenderbufferSize    int    `yaml:"max_renderbuffer_size"`
	ShaderError            string `yaml:"shader_error"`
}

// FixtureEnvironment serves a Fixture as an Environment
type FixtureEnvironment struct {
	fixture Fixture
}

// NewFixtureEnvironment wraps fixture
func NewFixtureEnvironment(fixture Fixture) *FixtureEnvironment {
	return &FixtureEnvironment{fixture: fixture}
}

// LoadFixture reads a fixture environment from a YAML file
func LoadFixture(path string) (*FixtureEnvironment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	fixture := &Fixture{}
	if err := yaml.Unmarshal(data, fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if g := fixture.Graphics; g != nil && len(g.MaxViewportDims) != 0 && len(g.MaxViewportDims) != 2 {
		return nil, fmt.Errorf("fixture %s: max_viewport_dims needs 2 values, got %d", path, len(g.MaxViewportDims))
	}
	return NewFixtureEnvironment(*fixture), nil
}

func (e *FixtureEnvironment) Navigator() NavigatorInfo {
	return NavigatorInfo{
		HardwareConcurrency: e.fixture.Navigator.HardwareConcurrency,
		UserAgent:           e.fixture.Navigator.UserAgent,
		Platform:            e.fixture.Navigator.Platform,
	}
}

func (e *FixtureEnvironment) HeapMemory() (HeapMemory, bool) {
	if e.fixture.HeapMemory == nil {
		return HeapMemory{}, false
	}
	return *e.fixture.HeapMemory, true
}

func (e *FixtureEnvironment) ProcessMemory() (ProcessMemory, bool) {
	if e.fixture.ProcessMemory == nil {
		return ProcessMemory{}, false
	}
	return *e.fixture.ProcessMemory, true
}

func (e *FixtureEnvironment) DeviceMemory() (float64, bool) {
	return e.fixture.DeviceMemoryGB, e.fixture.DeviceMemoryGB > 0
}

func (e *FixtureEnvironment) Screen() (ScreenInfo, bool) {
	if e.fixture.Screen == nil {
		return ScreenInfo{}, false
	}
	return *e.fixture.Screen, true
}

func (e *FixtureEnvironment) Viewport() (ViewportInfo, bool) {
	if e.fixture.Viewport == nil {
		return ViewportInfo{}, false
	}
	return *e.fixture.Viewport, true
}

func (e *FixtureEnvironment) NavigationTiming() (NavigationTiming, bool) {
	if e.fixture.NavigationTiming == nil {
		return NavigationTiming{}, false
	}
	return *e.fixture.NavigationTiming, true
}

func (e *FixtureEnvironment) GraphicsContext() (GraphicsContext, error) {
	if e.fixture.Graphics == nil {
		return nil, ErrGraphicsUnavailable
	}
	return &fixtureContext{graphics: e.fixture.Graphics}, nil
}

type fixtureContext struct {
	graphics *FixtureGraphics
}

func (c *fixtureContext) DebugRendererInfo() (string, string, bool) {
	if c.graphics.Vendor == "" && c.graphics.Renderer == "" {
		return "", "", false
	}
	return c.graphics.Vendor, c.graphics.Renderer, true
}

func (c *fixtureContext) Version() string { return c.graphics.Version }

func (c *fixtureContext) ShadingLanguageVersion() string { return c.graphics.ShadingLanguageVersion }

func (c *fixtureContext) MaxTextureSize() (int, bool) {
	return c.graphics.MaxTextureSize, c.graphics.MaxTextureSize > 0
}

func (c *fixtureContext) MaxViewportDims() ([2]int, bool) {
	if len(c.graphics.MaxViewportDims) != 2 {
		return [2]int{}, false
	}
	return [2]int{c.graphics.MaxViewportDims[0], c.graphics.MaxViewportDims[1]}, true
}

func (c *fixtureContext) MaxRenderbufferSize() (int, bool) {
	return c.graphics.MaxRenderbufferSize, c.graphics.MaxRenderbufferSize > 0
}

func (c *fixtureContext) CompileProgram(vertexSource, fragmentSource string) (Program, error) {
	if c.graphics.ShaderError != "" {
		return nil, errors.New(c.graphics.ShaderError)
	}
	if vertexSource == "" || fragmentSource == "" {
		return nil, errors.New("empty shader source")
	}
	return &fixtureProgram{}, nil
}

type fixtureProgram struct {
	vertices int
	released bool
}

func (p *fixtureProgram) Upload(positions []float32) error {
	if len(positions)%2 != 0 {
		return fmt.Errorf("odd position count %d", len(positions))
	}
	p.vertices = len(positions) / 2
	return nil
}

func (p *fixtureProgram) Draw(float64) error {
	if p.released {
		return errors.New("draw on released program")
	}
	if p.vertices < 3 {
		return errors.New("no geometry uploaded")
	}
	return nil
}

func (p *fixtureProgram) Release() { p.released = true }
