package collector

import (
	"fmt"
	"log/slog"
	"time"

	"perfmetrics-agent/models"
)

const (
	// GPUProbeDraws is the number of draw calls in one GPU proxy run
	GPUProbeDraws = 100
	// Render duration that maps to a 100% GPU load proxy
	gpuSaturation = 50 * time.Millisecond
)

const vertexShaderSource = `
attribute vec2 position;
void main() {
    gl_Position = vec4(position, 0.0, 1.0);
}
`

const fragmentShaderSource = `
precision mediump float;
uniform float time;
void main() {
    vec2 uv = gl_FragCoord.xy / 256.0;
    float color = sin(uv.x * 10.0 + time) * cos(uv.y * 10.0 + time);
    gl_FragColor = vec4(color, color, color, 1.0);
}
`

var quadPositions = []float32{-1, -1, 1, -1, -1, 1, 1, 1}

// GPUInfo reads graphics context parameters. It reports false when no
// context is available, after logging a warning.
func GPUInfo(env Environment, logger *slog.Logger) (models.GPUInfo, bool) {
	info := models.GPUInfo{}

	gl, err := env.GraphicsContext()
	if err != nil {
		logger.Warn("GPU info unavailable", "error", err)
		return info, false
	}

	if vendor, renderer, ok := gl.DebugRendererInfo(); ok {
		info.Vendor = vendor
		info.Renderer = renderer
	}

	info.WebGLVersion = gl.Version()
	info.ShadingLanguageVersion = gl.ShadingLanguageVersion()

	if size, ok := gl.MaxTextureSize(); ok {
		info.MaxTextureSize = models.Int(size)
	}
	if dims, ok := gl.MaxViewportDims(); ok {
		info.MaxViewportDims = []int{dims[0], dims[1]}
	}
	if size, ok := gl.MaxRenderbufferSize(); ok {
		info.MaxRenderbufferSize = models.Int(size)
	}

	return info, true
}

// GPUProbe is a compiled shader program ready to issue probe draws
type GPUProbe struct {
	program Program
	frames  int
}

// NewGPUProbe acquires a context, compiles the probe shaders and
// uploads the quad. Panics raised by the context are returned as errors.
func NewGPUProbe(env Environment) (probe *GPUProbe, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("graphics setup panicked: %v", r)
		}
	}()

	gl, err := env.GraphicsContext()
	if err != nil {
		return nil, err
	}

	program, err := gl.CompileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("compile probe shaders: %w", err)
	}

	if err := program.Upload(quadPositions); err != nil {
		program.Release()
		return nil, fmt.Errorf("upload probe geometry: %w", err)
	}

	return &GPUProbe{program: program}, nil
}

// Draw issues one probe draw with the time uniform set to uptime, and
// reports whether all draws are done.
func (p *GPUProbe) Draw(uptime time.Duration) (bool, error) {
	if err := p.program.Draw(uptime.Seconds()); err != nil {
		return false, err
	}
	p.frames++
	return p.frames >= GPUProbeDraws, nil
}

// Frames returns the number of draws issued so far
func (p *GPUProbe) Frames() int { return p.frames }

// Release frees the shader program
func (p *GPUProbe) Release() { p.program.Release() }

// GPUUsageScore maps the probe's render duration to the 0-100 proxy
func GPUUsageScore(elapsed time.Duration) int {
	return LoadProxyScore(elapsed, gpuSaturation)
}
