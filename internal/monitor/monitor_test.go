package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/model"
)

type fakeSampler struct {
	mu      sync.Mutex
	next    model.SystemMetrics
	err     error
	samples int
	failed  int
}

func (f *fakeSampler) Sample(_ context.Context) (model.SystemMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples++
	if f.err != nil {
		f.failed++
		return model.SystemMetrics{}, f.err
	}
	m := f.next
	m.Timestamp = time.Now()
	return m, nil
}

func (f *fakeSampler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples
}

func (f *fakeSampler) failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func newTestMonitor(sampler Sampler, historySize int) *SystemMonitor {
	return New(Config{Interval: 10 * time.Millisecond, HistorySize: historySize}, sampler, events.NewBus(nil), nil, zap.NewNop())
}

func TestRecommendedConcurrency_DefaultWithoutSamples(t *testing.T) {
	sm := newTestMonitor(&fakeSampler{}, 10)
	assert.Equal(t, DefaultConcurrency, sm.RecommendedConcurrency())
}

func TestRecommendedConcurrency_Formula(t *testing.T) {
	tests := []struct {
		name    string
		metrics model.SystemMetrics
		want    int
	}{
		{"idle", model.SystemMetrics{CoreCount: 8, CPUUsage: 0}, 8},
		{"half busy", model.SystemMetrics{CoreCount: 8, CPUUsage: 0.5}, 4},
		{"saturated floors at one", model.SystemMetrics{CoreCount: 8, CPUUsage: 1}, 1},
		{"memory pressure", model.SystemMetrics{CoreCount: 8, CPUUsage: 0.5, MemoryUsage: 0.85}, 3},
		{"memory and load pressure", model.SystemMetrics{CoreCount: 8, CPUUsage: 0.5, MemoryUsage: 0.85, LoadAverage: 9}, 2},
		{"pressure never goes below one", model.SystemMetrics{CoreCount: 2, CPUUsage: 0.9, MemoryUsage: 0.95, LoadAverage: 4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestMonitor(&fakeSampler{next: tt.metrics}, 10)
			_, err := sm.Sample(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, sm.RecommendedConcurrency())
		})
	}
}

func TestRecommendedConcurrency_MonotonicInCPU(t *testing.T) {
	for _, cores := range []int{1, 2, 4, 16} {
		prev := cores * 2
		for cpu := 0.0; cpu <= 1.0; cpu += 0.05 {
			got := recommendedFor(model.SystemMetrics{CoreCount: cores, CPUUsage: cpu, MemoryUsage: 0.5, LoadAverage: 0.5})
			assert.LessOrEqual(t, got, prev, "cores=%d cpu=%.2f", cores, cpu)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, cores*2)
			prev = got
		}
	}
}

func TestSample_HistoryIsBoundedFIFO(t *testing.T) {
	sampler := &fakeSampler{}
	sm := newTestMonitor(sampler, 3)

	for i := 1; i <= 5; i++ {
		sampler.next = model.SystemMetrics{ActiveProcesses: i, CoreCount: 4}
		_, err := sm.Sample(context.Background())
		require.NoError(t, err)
	}

	history := sm.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, 3, history[0].ActiveProcesses)
	assert.Equal(t, 5, history[2].ActiveProcesses)

	// returned slice is a copy
	history[0].ActiveProcesses = 99
	assert.Equal(t, 3, sm.History(0)[0].ActiveProcesses)
}

func TestSample_PublishesEvent(t *testing.T) {
	bus := events.NewBus(nil)
	sub := bus.SystemMetrics.Subscribe(1)
	defer sub.Cancel()

	sm := New(Config{}, &fakeSampler{next: model.SystemMetrics{CPUUsage: 0.42, CoreCount: 2}}, bus, nil, nil)
	_, err := sm.Sample(context.Background())
	require.NoError(t, err)

	select {
	case m := <-sub.C:
		assert.Equal(t, 0.42, m.CPUUsage)
	case <-time.After(time.Second):
		t.Fatal("expected system metrics event")
	}
}

func TestHistory_Window(t *testing.T) {
	sm := newTestMonitor(&fakeSampler{}, 10)
	sm.history = []model.SystemMetrics{
		{Timestamp: time.Now().Add(-time.Hour)},
		{Timestamp: time.Now().Add(-time.Minute)},
		{Timestamp: time.Now()},
	}
	assert.Len(t, sm.History(5*time.Minute), 2)
	assert.Len(t, sm.History(0), 3)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		metrics model.SystemMetrics
		want    model.HealthStatus
	}{
		{"healthy", model.SystemMetrics{CoreCount: 4, CPUUsage: 0.3, MemoryUsage: 0.4, LoadAverage: 1}, model.HealthHealthy},
		{"cpu degraded", model.SystemMetrics{CoreCount: 4, CPUUsage: 0.7, MemoryUsage: 0.4}, model.HealthDegraded},
		{"memory critical", model.SystemMetrics{CoreCount: 4, CPUUsage: 0.7, MemoryUsage: 0.85}, model.HealthCritical},
		{"load overrides", model.SystemMetrics{CoreCount: 4, CPUUsage: 0.1, MemoryUsage: 0.1, LoadAverage: 5}, model.HealthCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestMonitor(&fakeSampler{next: tt.metrics}, 10)
			_, err := sm.Sample(context.Background())
			require.NoError(t, err)

			health := sm.Health()
			assert.Equal(t, tt.want, health.Status)
			require.NotNil(t, health.Metrics)
			if tt.want != model.HealthHealthy {
				assert.NotEmpty(t, health.Recommendations)
			}
		})
	}
}

func TestHealth_NoSamples(t *testing.T) {
	health := newTestMonitor(&fakeSampler{}, 10).Health()
	assert.Equal(t, model.HealthHealthy, health.Status)
	assert.Nil(t, health.Metrics)
}

func TestStartStop_SamplesPeriodicallyAndSkipsFailures(t *testing.T) {
	sampler := &fakeSampler{next: model.SystemMetrics{CoreCount: 2}}
	sm := newTestMonitor(sampler, 100)

	sm.Start(context.Background())
	require.Eventually(t, func() bool { return sampler.count() >= 3 }, time.Second, 5*time.Millisecond)

	sampler.mu.Lock()
	sampler.err = errors.New("sensor unavailable")
	sampler.mu.Unlock()
	// ticks run sequentially, so once one sample has failed every earlier success is recorded
	require.Eventually(t, func() bool { return sampler.failures() >= 1 }, time.Second, 5*time.Millisecond)
	before := len(sm.History(0))
	require.Eventually(t, func() bool { return sampler.failures() >= 3 }, time.Second, 5*time.Millisecond)

	sm.Stop()
	sm.Stop()

	// failed ticks leave the history untouched
	assert.Equal(t, before, len(sm.History(0)))
	_, ok := sm.Latest()
	assert.True(t, ok)
}
