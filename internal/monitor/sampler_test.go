package monitor

import (
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/stretchr/testify/assert"
)

func TestHostSampler_CPUUsageFromDeltas(t *testing.T) {
	s := NewHostSampler()

	first := []cpu.TimesStat{
		{User: 10, Idle: 90},
		{User: 50, Idle: 50},
	}
	// since-boot ratio on the first read
	assert.InDelta(t, 0.3, s.cpuUsage(first), 1e-9)

	second := []cpu.TimesStat{
		{User: 20, Idle: 100}, // 10 busy / 20 total
		{User: 50, Idle: 60},  // 0 busy / 10 total
	}
	assert.InDelta(t, 0.25, s.cpuUsage(second), 1e-9)
}

func TestHostSampler_IowaitCountsAsIdle(t *testing.T) {
	busy, total := busyAndTotal(cpu.TimesStat{User: 1, System: 1, Idle: 6, Iowait: 2})
	assert.Equal(t, 2.0, busy)
	assert.Equal(t, 10.0, total)
}

func TestHostSampler_EmptyTimes(t *testing.T) {
	assert.Equal(t, 0.0, NewHostSampler().cpuUsage(nil))
}
