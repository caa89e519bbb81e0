package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"go-inference-pipeline/internal/model"
)

// Sampler reads one resource snapshot from the host
type Sampler interface {
	Sample(ctx context.Context) (model.SystemMetrics, error)
}

// HostSampler reads the local machine through gopsutil.
// CPU usage is the mean across cores of busy time over total time since the previous read.
type HostSampler struct {
	mu   sync.Mutex
	prev []cpu.TimesStat
}

// NewHostSampler creates a sampler for the current host
func NewHostSampler() *HostSampler {
	return &HostSampler{}
}

// Sample reads CPU, memory, load and process count. Load and process count
// fall back to zero on platforms that do not report them.
func (s *HostSampler) Sample(ctx context.Context) (model.SystemMetrics, error) {
	data := model.SystemMetrics{Timestamp: time.Now()}

	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return data, fmt.Errorf("failed to get CPU times: %w", err)
	}
	data.CPUUsage = s.cpuUsage(times)

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}
	data.CoreCount = cores

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return data, fmt.Errorf("failed to get memory info: %w", err)
	}
	if memInfo.Total > 0 {
		data.MemoryUsage = float64(memInfo.Total-memInfo.Free) / float64(memInfo.Total)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		data.LoadAverage = avg.Load1
	}

	if pids, err := process.PidsWithContext(ctx); err == nil {
		data.ActiveProcesses = len(pids)
	}

	return data, nil
}

func (s *HostSampler) cpuUsage(current []cpu.TimesStat) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prev
	s.prev = current
	if len(current) == 0 {
		return 0
	}

	var sum float64
	for i, c := range current {
		busy, total := busyAndTotal(c)
		if i < len(prev) {
			prevBusy, prevTotal := busyAndTotal(prev[i])
			busy -= prevBusy
			total -= prevTotal
		}
		if total > 0 {
			sum += clampRatio(busy / total)
		}
	}
	return sum / float64(len(current))
}

func busyAndTotal(t cpu.TimesStat) (float64, float64) {
	idle := t.Idle + t.Iowait
	total := t.User + t.System + t.Nice + t.Irq + t.Softirq + t.Steal + idle
	return total - idle, total
}

func clampRatio(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
