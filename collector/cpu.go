package collector

import (
	"math"
	"time"

	"perfmetrics-agent/clock"
	"perfmetrics-agent/models"
)

const (
	cpuWorkloadIterations = 1_000_000
	// Workload duration that maps to a 100% CPU load proxy
	cpuSaturation = 10 * time.Millisecond
)

// CPUProxy is the result of the synthetic CPU workload. Usage is a load
// proxy derived from how long the workload took, not OS utilization.
type CPUProxy struct {
	Usage          int
	ProcessingTime time.Duration
	Benchmark      float64
}

// MeasureCPUProxy runs the fixed workload on the calling goroutine and
// scores its duration. It blocks for the whole workload.
func MeasureCPUProxy(c clock.Clock) CPUProxy {
	start := c.Now()

	result := 0.0
	for i := 0; i < cpuWorkloadIterations; i++ {
		x := float64(i)
		result += math.Sqrt(x) * math.Sin(x)
	}

	elapsed := c.Now().Sub(start)
	return CPUProxy{
		Usage:          LoadProxyScore(elapsed, cpuSaturation),
		ProcessingTime: elapsed,
		Benchmark:      result,
	}
}

// LoadProxyScore maps elapsed to round(min(100, elapsed/saturation*100)),
// clamped to [0, 100].
func LoadProxyScore(elapsed, saturation time.Duration) int {
	if elapsed <= 0 || saturation <= 0 {
		return 0
	}
	score := math.Min(100, float64(elapsed)/float64(saturation)*100)
	return int(math.Round(score))
}

// CPUInfo builds a CPU snapshot from the navigator plus a fresh proxy run
func CPUInfo(env Environment, c clock.Clock) models.CPUInfo {
	info := models.CPUInfo{}

	nav := env.Navigator()
	if nav.HardwareConcurrency > 0 {
		info.Cores = models.Int(nav.HardwareConcurrency)
	}
	info.UserAgent = nav.UserAgent
	info.Platform = nav.Platform

	proxy := MeasureCPUProxy(c)
	info.Usage = models.Int(proxy.Usage)
	info.ProcessingTime = models.FormatMillis(proxy.ProcessingTime)

	return info
}
