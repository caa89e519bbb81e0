package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/store"
)

type memoryStore struct {
	mu     sync.Mutex
	saved  map[string]model.Alert
	order  []string
	failOn error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: map[string]model.Alert{}}
}

func (s *memoryStore) SaveAlert(_ context.Context, a model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return s.failOn
	}
	if _, ok := s.saved[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.saved[a.ID] = a
	return nil
}

func (s *memoryStore) ListAlerts(_ context.Context, limit int) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Alert{}
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.saved[s.order[i]])
	}
	return out, nil
}

func (s *memoryStore) GetAlert(_ context.Context, id string) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return model.Alert{}, s.failOn
	}
	a, ok := s.saved[id]
	if !ok {
		return model.Alert{}, fmt.Errorf("alert %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time             { return c.now }
func (c *clock) Advance(d time.Duration)    { c.now = c.now.Add(d) }
func newClock() *clock                      { return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)} }
func withClock(e *Engine, c *clock) *Engine { e.now = c.Now; return e }

func hotSystem() map[string]float64 {
	return model.SystemMetrics{CPUUsage: 0.95, MemoryUsage: 0.5, LoadAverage: 1}.MetricFields()
}

func TestEngine_DefaultRulesFire(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop())

	created := e.Evaluate(model.SourceSystem, hotSystem())
	require.Len(t, created, 1)
	assert.Equal(t, "cpu-critical", created[0].RuleID)
	assert.Equal(t, model.SeverityCritical, created[0].Severity)
	assert.Equal(t, 0.95, created[0].Value)
	assert.Equal(t, 0.95, created[0].Metrics["cpuUsage"])

	ai := model.AIMetricsSnapshot{ErrorRate: 0.1, AverageProcessingTime: 6000}.MetricFields()
	created = e.Evaluate(model.SourceAI, ai)
	assert.Len(t, created, 2)
}

func TestEngine_ThresholdIsInclusiveAndSourceScoped(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop())

	assert.Empty(t, e.Evaluate(model.SourceSystem, map[string]float64{"cpuUsage": 0.89}))
	assert.Empty(t, e.Evaluate(model.SourceProcessing, map[string]float64{"cpuUsage": 0.99}))
	assert.Len(t, e.Evaluate(model.SourceSystem, map[string]float64{"memoryUsage": 0.9}), 1)
}

func TestEngine_CooldownSuppressesRepeats(t *testing.T) {
	c := newClock()
	e := withClock(NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop()), c)

	require.Len(t, e.Evaluate(model.SourceSystem, hotSystem()), 1)
	for i := 0; i < 5; i++ {
		c.Advance(time.Minute - time.Second)
		assert.Empty(t, e.Evaluate(model.SourceSystem, hotSystem()), "update %d", i)
	}
	assert.Len(t, e.GetAlerts(model.AlertFilter{}), 1)

	c.Advance(5 * time.Second)
	assert.Len(t, e.Evaluate(model.SourceSystem, hotSystem()), 1)
}

func TestEngine_DisabledRuleIsSkipped(t *testing.T) {
	rules := DefaultRules()
	rules[0].Enabled = false
	e := NewEngine(Config{Rules: rules}, nil, nil, nil, zap.NewNop())
	assert.Empty(t, e.Evaluate(model.SourceSystem, hotSystem()))
}

func TestEngine_GetAlertsFilters(t *testing.T) {
	c := newClock()
	e := withClock(NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop()), c)

	cpu := e.Evaluate(model.SourceSystem, hotSystem())[0]
	c.Advance(time.Minute)
	errRate := e.Evaluate(model.SourceAI, map[string]float64{"errorRate": 0.5})[0]
	c.Advance(time.Minute)
	mem := e.Evaluate(model.SourceSystem, map[string]float64{"memoryUsage": 0.97})[0]

	all := e.GetAlerts(model.AlertFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, []string{mem.ID, errRate.ID, cpu.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	assert.Len(t, e.GetAlerts(model.AlertFilter{Severity: model.SeverityCritical}), 2)
	assert.Len(t, e.GetAlerts(model.AlertFilter{Source: model.SourceAI}), 1)
	assert.Len(t, e.GetAlerts(model.AlertFilter{Since: errRate.Timestamp}), 2)

	limited := e.GetAlerts(model.AlertFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, mem.ID, limited[0].ID)

	_, err := e.AcknowledgeAlert(cpu.ID, "oncall")
	require.NoError(t, err)
	yes, no := true, false
	assert.Len(t, e.GetAlerts(model.AlertFilter{Acknowledged: &yes}), 1)
	assert.Len(t, e.GetAlerts(model.AlertFilter{Acknowledged: &no}), 2)
}

func TestEngine_AcknowledgeAlert(t *testing.T) {
	c := newClock()
	bus := events.NewBus(zap.NewNop())
	acks := bus.AlertAcknowledged.Subscribe(4)
	defer acks.Cancel()
	e := withClock(NewEngine(DefaultConfig(), nil, bus, nil, zap.NewNop()), c)

	alert := e.Evaluate(model.SourceSystem, hotSystem())[0]

	acked, err := e.AcknowledgeAlert(alert.ID, "alice")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	assert.Equal(t, "alice", acked.AcknowledgedBy)
	require.NotNil(t, acked.AcknowledgedAt)

	c.Advance(time.Minute)
	again, err := e.AcknowledgeAlert(alert.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", again.AcknowledgedBy)
	assert.Equal(t, c.Now(), *again.AcknowledgedAt)

	_, err = e.AcknowledgeAlert("missing", "bob")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	assert.Len(t, acks.C, 2)
}

func TestEngine_HistoryIsBounded(t *testing.T) {
	rules := []model.AlertRule{{
		ID: "always", Name: "Always", Source: model.SourceProcessing, Field: "failureCount",
		Severity: model.SeverityInfo, Enabled: true,
	}}
	e := NewEngine(Config{MaxHistory: 3, Rules: rules}, nil, nil, nil, zap.NewNop())

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, e.Evaluate(model.SourceProcessing, map[string]float64{"failureCount": float64(i)})[0].ID)
	}
	alerts := e.GetAlerts(model.AlertFilter{})
	require.Len(t, alerts, 3)
	assert.Equal(t, ids[4], alerts[0].ID)
	assert.Equal(t, ids[2], alerts[2].ID)
}

func TestEngine_AcknowledgeEvictedAlertFromStore(t *testing.T) {
	rules := []model.AlertRule{{
		ID: "always", Name: "Always", Source: model.SourceProcessing, Field: "failureCount",
		Severity: model.SeverityInfo, Enabled: true,
	}}
	saved := newMemoryStore()
	e := NewEngine(Config{MaxHistory: 1, Rules: rules}, saved, nil, nil, zap.NewNop())

	evicted := e.Evaluate(model.SourceProcessing, map[string]float64{"failureCount": 1})[0]
	e.Evaluate(model.SourceProcessing, map[string]float64{"failureCount": 2})
	require.Len(t, e.GetAlerts(model.AlertFilter{}), 1)

	acked, err := e.AcknowledgeAlert(evicted.ID, "dana")
	require.NoError(t, err)
	assert.Equal(t, evicted.ID, acked.ID)
	assert.Equal(t, "dana", acked.AcknowledgedBy)

	persisted, err := saved.GetAlert(context.Background(), evicted.ID)
	require.NoError(t, err)
	assert.True(t, persisted.Acknowledged)
	assert.Len(t, e.GetAlerts(model.AlertFilter{}), 1)

	_, err = e.AcknowledgeAlert("missing", "dana")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	saved.failOn = errors.New("disk unavailable")
	_, err = e.AcknowledgeAlert("other", "dana")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlertNotFound)
}

func TestEngine_PersistsAndReloads(t *testing.T) {
	store := newMemoryStore()
	e := NewEngine(DefaultConfig(), store, nil, nil, zap.NewNop())

	first := e.Evaluate(model.SourceSystem, hotSystem())[0]
	second := e.Evaluate(model.SourceAI, map[string]float64{"errorRate": 0.3})[0]
	_, err := e.AcknowledgeAlert(first.ID, "carol")
	require.NoError(t, err)

	restored := NewEngine(DefaultConfig(), store, nil, nil, zap.NewNop())
	require.NoError(t, restored.Load(context.Background()))
	alerts := restored.GetAlerts(model.AlertFilter{})
	require.Len(t, alerts, 2)
	assert.Equal(t, second.ID, alerts[0].ID)
	assert.True(t, alerts[1].Acknowledged)
}

func TestEngine_StoreFailureDoesNotDropAlert(t *testing.T) {
	store := newMemoryStore()
	store.failOn = errors.New("disk full")
	e := NewEngine(DefaultConfig(), store, nil, nil, zap.NewNop())

	assert.Len(t, e.Evaluate(model.SourceSystem, hotSystem()), 1)
	assert.Len(t, e.GetAlerts(model.AlertFilter{}), 1)
}

func TestEngine_RunConsumesBus(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	created := bus.AlertCreated.Subscribe(4)
	defer created.Cancel()
	e := NewEngine(DefaultConfig(), nil, bus, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return bus.ProcessingMetrics.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	bus.SystemMetrics.Publish(model.SystemMetrics{CPUUsage: 0.99})
	bus.AIMetrics.Publish(model.AIMetricsSnapshot{ErrorRate: 0.25})
	bus.ProcessingMetrics.Publish(model.ProcessingStats{TotalProcessed: 10})

	require.Eventually(t, func() bool { return len(created.C) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, e.GetAlerts(model.AlertFilter{}), 2)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Zero(t, bus.SystemMetrics.Subscribers())
}

func TestEngine_StartSubscribesBeforeReturning(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	e := NewEngine(DefaultConfig(), nil, bus, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	assert.Equal(t, 1, bus.SystemMetrics.Subscribers())
	assert.Equal(t, 1, bus.AIMetrics.Subscribers())
	assert.Equal(t, 1, bus.ProcessingMetrics.Subscribers())

	// published immediately after Start, as the monitor's first sample is
	bus.SystemMetrics.Publish(model.SystemMetrics{CPUUsage: 0.99})
	require.Eventually(t, func() bool {
		return len(e.GetAlerts(model.AlertFilter{Source: model.SourceSystem})) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return bus.SystemMetrics.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestEngine_RuleManagement(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop())

	rule, err := e.AddRule(model.AlertRule{
		Name: "Retry storm", Source: model.SourceProcessing, Field: "retryCount",
		Threshold: 100, Severity: model.SeverityError, Enabled: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.Len(t, e.Rules(), 5)

	rule.Threshold = 50
	_, err = e.AddRule(rule)
	require.NoError(t, err)
	assert.Len(t, e.Rules(), 5)
	assert.Len(t, e.Evaluate(model.SourceProcessing, map[string]float64{"retryCount": 60}), 1)

	require.NoError(t, e.RemoveRule(rule.ID))
	assert.ErrorIs(t, e.RemoveRule(rule.ID), ErrRuleNotFound)

	_, err = e.AddRule(model.AlertRule{Source: "disk", Field: "x", Severity: model.SeverityInfo})
	assert.ErrorIs(t, err, ErrInvalidRule)
	_, err = e.AddRule(model.AlertRule{Source: model.SourceAI, Severity: model.SeverityInfo})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestEngine_RulesReturnsCopy(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil, zap.NewNop())
	rules := e.Rules()
	rules[0].Threshold = 0
	assert.Equal(t, 0.9, e.Rules()[0].Threshold)
}
