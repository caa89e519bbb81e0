package model

import "time"

// HealthStatus is the coarse verdict derived from system metrics
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

// SystemMetrics is a single resource sample. Usage values are ratios in [0,1].
type SystemMetrics struct {
	CPUUsage        float64   `json:"cpuUsage"`
	MemoryUsage     float64   `json:"memoryUsage"`
	LoadAverage     float64   `json:"loadAverage"`
	ActiveProcesses int       `json:"activeProcesses"`
	CoreCount       int       `json:"coreCount"`
	Timestamp       time.Time `json:"timestamp"`
}

// MetricFields exposes the numeric fields alert rules can reference.
func (m SystemMetrics) MetricFields() map[string]float64 {
	return map[string]float64{
		"cpuUsage":        m.CPUUsage,
		"memoryUsage":     m.MemoryUsage,
		"loadAverage":     m.LoadAverage,
		"activeProcesses": float64(m.ActiveProcesses),
	}
}

// SystemHealth is returned by the health endpoint
type SystemHealth struct {
	Status          HealthStatus   `json:"status"`
	Metrics         *SystemMetrics `json:"metrics,omitempty"`
	Recommendations []string       `json:"recommendations"`
}
