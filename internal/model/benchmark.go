package model

import "time"

// BenchmarkConfig describes one benchmark run
type BenchmarkConfig struct {
	Name        string   `json:"name"`
	Duration    Duration `json:"duration"`
	Concurrency int      `json:"concurrency"`
	BatchSize   int      `json:"batchSize"`
	Warmup      Duration `json:"warmup,omitempty"`
	Cooldown    Duration `json:"cooldown,omitempty"`
}

// LatencyStats are per-batch wall-clock latencies in milliseconds
type LatencyStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// BenchmarkResult is immutable once stored.
type BenchmarkResult struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Timestamp     time.Time              `json:"timestamp"`
	Duration      Duration               `json:"duration"`
	Config        BenchmarkConfig        `json:"config"`
	TotalItems    int64                  `json:"totalItems"`
	Samples       int                    `json:"samples"`
	Errors        int                    `json:"errors"`
	Throughput    float64                `json:"throughput"` // items per second
	Latency       LatencyStats           `json:"latency"`
	ErrorRate     float64                `json:"errorRate"`
	ResourceUsage SystemMetrics          `json:"resourceUsage"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

// BenchmarkComparison holds b - a for every numeric field.
type BenchmarkComparison struct {
	BaselineID      string       `json:"baselineId"`
	CandidateID     string       `json:"candidateId"`
	Throughput      float64      `json:"throughput"`
	Latency         LatencyStats `json:"latency"`
	ErrorRate       float64      `json:"errorRate"`
	CPUUsage        float64      `json:"cpuUsage"`
	MemoryUsage     float64      `json:"memoryUsage"`
	LoadAverage     float64      `json:"loadAverage"`
	ActiveProcesses int          `json:"activeProcesses"`
}
