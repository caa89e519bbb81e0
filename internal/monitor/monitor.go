package monitor

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/metrics"
	"go-inference-pipeline/internal/model"
)

// DefaultConcurrency is recommended before the first sample exists
const DefaultConcurrency = 3

// Health thresholds on usage ratios
const (
	degradedThreshold = 0.6
	criticalThreshold = 0.8
	memoryPressure    = 0.8
)

// Config controls sampling
type Config struct {
	Interval    time.Duration `json:"interval"`
	HistorySize int           `json:"historySize"`
}

// DefaultConfig samples every 5s and keeps one hour of history
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		HistorySize: 720,
	}
}

// SystemMonitor samples host resources on a fixed interval and keeps a bounded history.
type SystemMonitor struct {
	config     Config
	sampler    Sampler
	bus        *events.Bus
	collectors *metrics.Collectors
	logger     *zap.Logger

	mu      sync.RWMutex
	history []model.SystemMetrics

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a monitor. A nil sampler reads the local host.
func New(cfg Config, sampler Sampler, bus *events.Bus, collectors *metrics.Collectors, logger *zap.Logger) *SystemMonitor {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if sampler == nil {
		sampler = NewHostSampler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemMonitor{
		config:     cfg,
		sampler:    sampler,
		bus:        bus,
		collectors: collectors,
		logger:     logger,
		history:    make([]model.SystemMetrics, 0, cfg.HistorySize),
	}
}

// Start takes an immediate sample and then one per interval until Stop or ctx is done.
func (sm *SystemMonitor) Start(ctx context.Context) {
	sm.lifecycle.Lock()
	defer sm.lifecycle.Unlock()
	if sm.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	sm.cancel = cancel

	sm.logger.Info("Starting system monitor",
		zap.Duration("interval", sm.config.Interval),
		zap.Int("history_size", sm.config.HistorySize))

	sm.wg.Add(1)
	go sm.monitorLoop(ctx)
}

// Stop cancels the sampling loop and waits for it to exit
func (sm *SystemMonitor) Stop() {
	sm.lifecycle.Lock()
	cancel := sm.cancel
	sm.cancel = nil
	sm.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	sm.logger.Info("Stopping system monitor")
	cancel()
	sm.wg.Wait()
}

func (sm *SystemMonitor) monitorLoop(ctx context.Context) {
	defer sm.wg.Done()

	sm.tick(ctx)

	ticker := time.NewTicker(sm.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.tick(ctx)
		}
	}
}

// tick samples once; a failure keeps the stale history and waits for the next tick
func (sm *SystemMonitor) tick(ctx context.Context) {
	if _, err := sm.Sample(ctx); err != nil && ctx.Err() == nil {
		sm.logger.Warn("Failed to collect system metrics", zap.Error(err))
	}
}

// Sample reads one snapshot, appends it to history and publishes it.
func (sm *SystemMonitor) Sample(ctx context.Context) (model.SystemMetrics, error) {
	data, err := sm.sampler.Sample(ctx)
	if err != nil {
		return model.SystemMetrics{}, fmt.Errorf("sample system metrics: %w", err)
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}
	if data.CoreCount <= 0 {
		data.CoreCount = runtime.NumCPU()
	}

	sm.mu.Lock()
	if len(sm.history) >= sm.config.HistorySize {
		sm.history = append(sm.history[1:], data)
	} else {
		sm.history = append(sm.history, data)
	}
	sm.mu.Unlock()

	sm.collectors.ObserveSystem(data, recommendedFor(data))
	if sm.bus != nil {
		sm.bus.SystemMetrics.Publish(data)
	}
	return data, nil
}

// Latest returns the most recent sample
func (sm *SystemMonitor) Latest() (model.SystemMetrics, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if len(sm.history) == 0 {
		return model.SystemMetrics{}, false
	}
	return sm.history[len(sm.history)-1], true
}

// History returns a copy of the samples taken within window; window <= 0 returns everything.
func (sm *SystemMonitor) History(window time.Duration) []model.SystemMetrics {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	start := 0
	if window > 0 {
		cutoff := time.Now().Add(-window)
		for start < len(sm.history) && sm.history[start].Timestamp.Before(cutoff) {
			start++
		}
	}

	result := make([]model.SystemMetrics, len(sm.history)-start)
	copy(result, sm.history[start:])
	return result
}

// RecommendedConcurrency derives a parallelism bound from the latest sample.
func (sm *SystemMonitor) RecommendedConcurrency() int {
	latest, ok := sm.Latest()
	if !ok {
		return DefaultConcurrency
	}
	return recommendedFor(latest)
}

func recommendedFor(m model.SystemMetrics) int {
	cores := m.CoreCount
	if cores <= 0 {
		cores = runtime.NumCPU()
	}

	concurrency := int(math.Floor(float64(cores) * (1 - m.CPUUsage)))
	if concurrency < 1 {
		concurrency = 1
	}
	if m.MemoryUsage > memoryPressure {
		concurrency = max(1, concurrency-1)
	}
	if m.LoadAverage > float64(cores) {
		concurrency = max(1, concurrency-1)
	}
	return min(max(concurrency, 1), cores*2)
}

// Health classifies the latest sample.
func (sm *SystemMonitor) Health() model.SystemHealth {
	latest, ok := sm.Latest()
	if !ok {
		return model.SystemHealth{
			Status:          model.HealthHealthy,
			Recommendations: []string{"No system metrics collected yet"},
		}
	}

	status := model.HealthHealthy
	recommendations := make([]string, 0)
	escalate := func(s model.HealthStatus) {
		if s == model.HealthCritical || status == model.HealthHealthy {
			status = s
		}
	}

	switch {
	case latest.CPUUsage > criticalThreshold:
		escalate(model.HealthCritical)
		recommendations = append(recommendations, "CPU usage is critical: reduce concurrency or scale out")
	case latest.CPUUsage > degradedThreshold:
		escalate(model.HealthDegraded)
		recommendations = append(recommendations, "CPU usage is elevated: consider lowering batch concurrency")
	}

	switch {
	case latest.MemoryUsage > criticalThreshold:
		escalate(model.HealthCritical)
		recommendations = append(recommendations, "Memory usage is critical: reduce batch size")
	case latest.MemoryUsage > degradedThreshold:
		escalate(model.HealthDegraded)
		recommendations = append(recommendations, "Memory usage is elevated: monitor for leaks")
	}

	if latest.LoadAverage > float64(latest.CoreCount) {
		escalate(model.HealthCritical)
		recommendations = append(recommendations,
			fmt.Sprintf("Load average %.2f exceeds %d cores: system is overloaded", latest.LoadAverage, latest.CoreCount))
	}

	return model.SystemHealth{
		Status:          status,
		Metrics:         &latest,
		Recommendations: recommendations,
	}
}

// Config returns the sampling configuration
func (sm *SystemMonitor) Config() Config {
	return sm.config
}
