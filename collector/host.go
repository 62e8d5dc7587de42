package collector

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostEnvironment probes the machine the agent runs on. The heap shape
// comes from the Go runtime, the process shape and device memory from
// gopsutil, and the graphics context from DRM sysfs. There is no screen,
// viewport or navigation timing on a headless host.
type HostEnvironment struct {
	drmRoot string
}

// NewHostEnvironment returns an Environment for the local machine
func NewHostEnvironment() *HostEnvironment {
	return &HostEnvironment{drmRoot: defaultDRMRoot}
}

// Navigator reports logical cores and a platform identification string
func (h *HostEnvironment) Navigator() NavigatorInfo {
	info := NavigatorInfo{}

	if count, err := cpu.Counts(true); err == nil {
		info.HardwareConcurrency = count
	}

	if hostInfo, err := host.Info(); err == nil {
		info.UserAgent = userAgent(hostInfo)
		info.Platform = hostInfo.Platform
	}
	if info.Platform == "" {
		info.Platform = runtime.GOOS
	}

	return info
}

// userAgent formats host info like "linux/ubuntu 22.04 (x86_64) go1.24"
func userAgent(info *host.InfoStat) string {
	parts := []string{info.OS + "/" + info.Platform}
	if info.PlatformVersion != "" {
		parts = append(parts, info.PlatformVersion)
	}
	if info.KernelArch != "" {
		parts = append(parts, "("+info.KernelArch+")")
	}
	parts = append(parts, runtime.Version())
	return strings.Join(parts, " ")
}

// HeapMemory reports Go heap usage. The limit is the runtime soft
// memory limit, or physical memory when no limit is set.
func (h *HostEnvironment) HeapMemory() (HeapMemory, bool) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := uint64(debug.SetMemoryLimit(-1))
	if limit == 0 || limit > 1<<62 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return HeapMemory{}, false
		}
		limit = vm.Total
	}

	return HeapMemory{
		Used:  stats.HeapAlloc,
		Total: stats.HeapSys,
		Limit: limit,
	}, true
}

// ProcessMemory reports resident and virtual size of this process
func (h *HostEnvironment) ProcessMemory() (ProcessMemory, bool) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessMemory{}, false
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return ProcessMemory{}, false
	}
	return ProcessMemory{Used: info.RSS, Total: info.VMS}, true
}

// DeviceMemory reports installed RAM in whole gigabytes
func (h *HostEnvironment) DeviceMemory() (float64, bool) {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total == 0 {
		return 0, false
	}
	return float64(vm.Total >> 30), true
}

func (h *HostEnvironment) Screen() (ScreenInfo, bool) { return ScreenInfo{}, false }

func (h *HostEnvironment) Viewport() (ViewportInfo, bool) { return ViewportInfo{}, false }

func (h *HostEnvironment) NavigationTiming() (NavigationTiming, bool) {
	return NavigationTiming{}, false
}

// GraphicsContext returns a read-only context for the first DRM card
func (h *HostEnvironment) GraphicsContext() (GraphicsContext, error) {
	card, err := findDRMCard(h.drmRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphicsUnavailable, err)
	}
	return card, nil
}
