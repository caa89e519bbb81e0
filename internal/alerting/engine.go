package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/metrics"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/store"
)

var (
	// ErrAlertNotFound is returned when acknowledging an unknown alert id
	ErrAlertNotFound = errors.New("alert not found")
	ErrRuleNotFound  = errors.New("alert rule not found")
	ErrInvalidRule   = errors.New("invalid alert rule")
)

// DefaultMaxHistory caps the retained alerts
const DefaultMaxHistory = 1000

// AlertStore persists alerts across restarts
type AlertStore interface {
	SaveAlert(ctx context.Context, alert model.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	// GetAlert returns an error wrapping store.ErrNotFound for unknown ids
	GetAlert(ctx context.Context, id string) (model.Alert, error)
}

// Config configures the Engine
type Config struct {
	MaxHistory int
	Rules      []model.AlertRule
}

// DefaultConfig seeds the default rules
func DefaultConfig() Config {
	return Config{MaxHistory: DefaultMaxHistory, Rules: DefaultRules()}
}

// DefaultRules returns the built-in resource and inference rules
func DefaultRules() []model.AlertRule {
	return []model.AlertRule{
		{
			ID: "cpu-critical", Name: "High CPU usage", Source: model.SourceSystem,
			Field: "cpuUsage", Threshold: 0.9, Severity: model.SeverityCritical,
			Cooldown: model.Duration(5 * time.Minute), Enabled: true,
		},
		{
			ID: "memory-critical", Name: "High memory usage", Source: model.SourceSystem,
			Field: "memoryUsage", Threshold: 0.9, Severity: model.SeverityCritical,
			Cooldown: model.Duration(5 * time.Minute), Enabled: true,
		},
		{
			ID: "ai-error-rate", Name: "High inference error rate", Source: model.SourceAI,
			Field: "errorRate", Threshold: 0.1, Severity: model.SeverityWarning,
			Cooldown: model.Duration(10 * time.Minute), Enabled: true,
		},
		{
			ID: "ai-processing-time", Name: "Slow inference", Source: model.SourceAI,
			Field: "averageProcessingTime", Threshold: 5000, Severity: model.SeverityWarning,
			Cooldown: model.Duration(10 * time.Minute), Enabled: true,
		},
	}
}

// Engine turns metric updates into alerts. Its rule table and history are
// only mutated by Evaluate, rule management and acknowledgement; readers get copies.
type Engine struct {
	mu         sync.RWMutex
	rules      []model.AlertRule
	alerts     []model.Alert // oldest first
	maxHistory int

	store      AlertStore
	bus        *events.Bus
	collectors *metrics.Collectors
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an engine. store, bus and collectors may be nil.
func NewEngine(cfg Config, store AlertStore, bus *events.Bus, collectors *metrics.Collectors, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	rules := make([]model.AlertRule, len(cfg.Rules))
	copy(rules, cfg.Rules)

	return &Engine{
		rules:      rules,
		maxHistory: cfg.MaxHistory,
		store:      store,
		bus:        bus,
		collectors: collectors,
		logger:     logger,
		now:        time.Now,
	}
}

// Load restores the most recent alerts from the store
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	stored, err := e.store.ListAlerts(ctx, e.maxHistory)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// the store lists newest first
	e.alerts = make([]model.Alert, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		e.alerts = append(e.alerts, stored[i])
	}
	e.logger.Info("Alerts restored", zap.Int("count", len(e.alerts)))
	return nil
}

// metricSubscriptions are the engine's inputs on the bus
type metricSubscriptions struct {
	system     events.Subscription[model.SystemMetrics]
	ai         events.Subscription[model.AIMetricsSnapshot]
	processing events.Subscription[model.ProcessingStats]
}

func (e *Engine) subscribe() *metricSubscriptions {
	return &metricSubscriptions{
		system:     e.bus.SystemMetrics.Subscribe(0),
		ai:         e.bus.AIMetrics.Subscribe(0),
		processing: e.bus.ProcessingMetrics.Subscribe(0),
	}
}

// Run evaluates every metric update published on the bus until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	if e.bus == nil {
		return
	}
	e.consume(ctx, e.subscribe())
}

// Start subscribes before returning, so no update published afterwards is
// missed, and evaluates in the background until ctx is done.
func (e *Engine) Start(ctx context.Context) {
	if e.bus == nil {
		return
	}
	subs := e.subscribe()
	go e.consume(ctx, subs)
}

func (e *Engine) consume(ctx context.Context, subs *metricSubscriptions) {
	defer subs.system.Cancel()
	defer subs.ai.Cancel()
	defer subs.processing.Cancel()

	e.logger.Info("Alert engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Alert engine stopped")
			return
		case m := <-subs.system.C:
			e.Evaluate(model.SourceSystem, m.MetricFields())
		case m := <-subs.ai.C:
			e.Evaluate(model.SourceAI, m.MetricFields())
		case s := <-subs.processing.C:
			e.Evaluate(model.SourceProcessing, s.MetricFields())
		}
	}
}

// Evaluate checks every enabled rule of source against fields and returns the
// alerts it created. A rule inside its cooldown is skipped.
func (e *Engine) Evaluate(source model.AlertSource, fields map[string]float64) []model.Alert {
	now := e.now()
	var created []model.Alert

	e.mu.Lock()
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Enabled || rule.Source != source {
			continue
		}
		if !rule.LastTriggeredAt.IsZero() && now.Sub(rule.LastTriggeredAt) < rule.Cooldown.Std() {
			continue
		}
		value, ok := fields[rule.Field]
		if !ok || value < rule.Threshold {
			continue
		}

		snapshot := make(map[string]float64, len(fields))
		for k, v := range fields {
			snapshot[k] = v
		}
		alert := model.Alert{
			ID:        uuid.New().String(),
			RuleID:    rule.ID,
			Severity:  rule.Severity,
			Source:    source,
			Message:   fmt.Sprintf("%s: %s is %.2f (threshold %.2f)", rule.Name, rule.Field, value, rule.Threshold),
			Value:     value,
			Threshold: rule.Threshold,
			Timestamp: now,
			Metrics:   snapshot,
		}
		rule.LastTriggeredAt = now
		e.appendLocked(alert)
		created = append(created, alert)
	}
	e.mu.Unlock()

	for _, alert := range created {
		e.logger.Warn("Alert raised",
			zap.String("rule_id", alert.RuleID),
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message))
		e.collectors.IncAlert(alert.Severity, alert.Source)
		e.persist(alert)
		if e.bus != nil {
			e.bus.AlertCreated.Publish(alert)
		}
	}
	return created
}

func (e *Engine) appendLocked(alert model.Alert) {
	if len(e.alerts) >= e.maxHistory {
		e.alerts = e.alerts[len(e.alerts)-e.maxHistory+1:]
	}
	e.alerts = append(e.alerts, alert)
}

func (e *Engine) persist(alert model.Alert) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveAlert(context.Background(), alert); err != nil {
		e.logger.Error("Failed to persist alert", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

// GetAlerts returns matching alerts newest first
func (e *Engine) GetAlerts(filter model.AlertFilter) []model.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := []model.Alert{}
	for i := len(e.alerts) - 1; i >= 0; i-- {
		a := e.alerts[i]
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Source != "" && a.Source != filter.Source {
			continue
		}
		if filter.Acknowledged != nil && a.Acknowledged != *filter.Acknowledged {
			continue
		}
		if !filter.Since.IsZero() && a.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// AcknowledgeAlert marks an alert as handled by who. Acknowledging again
// overwrites the acknowledger and time. Alerts that aged out of the in-memory
// history are acknowledged in the store.
func (e *Engine) AcknowledgeAlert(id, who string) (model.Alert, error) {
	at := e.now()
	e.mu.Lock()
	var (
		acked model.Alert
		found bool
	)
	for i := range e.alerts {
		if e.alerts[i].ID != id {
			continue
		}
		acknowledge(&e.alerts[i], who, at)
		acked, found = e.alerts[i], true
		break
	}
	e.mu.Unlock()

	if !found {
		stored, err := e.storedAlert(id)
		if err != nil {
			return model.Alert{}, err
		}
		acknowledge(&stored, who, at)
		acked = stored
	}

	e.logger.Info("Alert acknowledged", zap.String("alert_id", id), zap.String("by", who))
	e.persist(acked)
	if e.bus != nil {
		e.bus.AlertAcknowledged.Publish(acked)
	}
	return acked, nil
}

func acknowledge(alert *model.Alert, who string, at time.Time) {
	alert.Acknowledged = true
	alert.AcknowledgedBy = who
	alert.AcknowledgedAt = &at
}

// storedAlert looks up an alert that is no longer held in memory
func (e *Engine) storedAlert(id string) (model.Alert, error) {
	if e.store == nil {
		return model.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	alert, err := e.store.GetAlert(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if err != nil {
		return model.Alert{}, fmt.Errorf("load alert %s: %w", id, err)
	}
	return alert, nil
}

// Rules returns a copy of the rule table
func (e *Engine) Rules() []model.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.AlertRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// AddRule adds rule, or replaces the rule with the same id.
func (e *Engine) AddRule(rule model.AlertRule) (model.AlertRule, error) {
	if err := validateRule(rule); err != nil {
		return model.AlertRule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].ID == rule.ID {
			e.rules[i] = rule
			return rule, nil
		}
	}
	e.rules = append(e.rules, rule)
	return rule, nil
}

// RemoveRule deletes the rule with id
func (e *Engine) RemoveRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

func validateRule(rule model.AlertRule) error {
	switch rule.Source {
	case model.SourceSystem, model.SourceAI, model.SourceProcessing:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRule, rule.Source)
	}
	switch rule.Severity {
	case model.SeverityInfo, model.SeverityWarning, model.SeverityError, model.SeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, rule.Severity)
	}
	if rule.Field == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidRule)
	}
	if rule.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidRule)
	}
	return nil
}
