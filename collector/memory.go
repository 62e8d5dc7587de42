package collector

import (
	"strconv"

	"perfmetrics-agent/models"
)

// MemoryInfo reads the first available memory source, in priority
// order: heap (used/total/limit), process (used/total), device memory.
func MemoryInfo(env Environment) models.MemoryInfo {
	info := models.MemoryInfo{}

	if heap, ok := env.HeapMemory(); ok {
		info.Used = models.FormatMegabytes(heap.Used)
		info.Total = models.FormatMegabytes(heap.Total)
		info.Limit = models.FormatMegabytes(heap.Limit)
		info.Source = models.SourceHeap
	} else if proc, ok := env.ProcessMemory(); ok {
		info.Used = models.FormatMegabytes(proc.Used)
		info.Total = models.FormatMegabytes(proc.Total)
		info.Source = models.SourceProcess
	} else if gb, ok := env.DeviceMemory(); ok && gb > 0 {
		info.Available = strconv.FormatFloat(gb, 'f', -1, 64) + "GB"
		info.Source = models.SourceDeviceMemory
	}

	return info
}

// MemoryUsage picks the display string: Used, else Available, else "N/A"
func MemoryUsage(info models.MemoryInfo) string {
	if info.Used != "" {
		return info.Used
	}
	if info.Available != "" {
		return info.Available
	}
	return models.SourceNone
}
