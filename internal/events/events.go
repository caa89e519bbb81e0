// Package events is the in-process publish/subscribe surface between components.
// Every topic carries one payload type, so subscribers never decode strings.
package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/model"
)

// Topic names, used for logging and the monitoring config endpoint
const (
	SystemMetricsUpdated     = "system.metrics.updated"
	AIMetricsUpdated         = "ai.metrics.updated"
	ProcessingMetricsUpdated = "processing.metrics.updated"
	AlertCreated             = "alert.created"
	AlertAcknowledged        = "alert.acknowledged"
	BenchmarkCompleted       = "benchmark.completed"
)

const defaultBuffer = 16

// dropLogInterval spaces out the warnings for a subscriber that keeps falling behind
const dropLogInterval = 1000

// Subscription is a buffered receive channel plus its cancel func
type Subscription[T any] struct {
	C      <-chan T
	cancel func()
}

// Cancel unregisters the subscription and closes C.
func (s Subscription[T]) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Topic fans a payload out to every subscriber without blocking the publisher.
type Topic[T any] struct {
	name        string
	logger      *zap.Logger
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
	dropped     atomic.Uint64
}

// NewTopic creates a topic
func NewTopic[T any](name string, logger *zap.Logger) *Topic[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Topic[T]{
		name:        name,
		logger:      logger,
		subscribers: make(map[chan T]struct{}),
	}
}

// Name returns the topic name
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers a new subscriber channel with the given buffer size.
func (t *Topic[T]) Subscribe(buffer int) Subscription[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan T, buffer)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return Subscription[T]{
		C: ch,
		cancel: func() {
			once.Do(func() {
				t.mu.Lock()
				delete(t.subscribers, ch)
				t.mu.Unlock()
				close(ch)
			})
		},
	}
}

// Publish delivers payload to all subscribers. A full subscriber drops the event.
func (t *Topic[T]) Publish(payload T) {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	for ch := range t.subscribers {
		select {
		case ch <- payload:
		default:
			if n := t.dropped.Add(1); n == 1 || n%dropLogInterval == 0 {
				t.logger.Warn("Subscriber channel full, events dropped",
					zap.String("topic", t.name),
					zap.Uint64("dropped_total", n))
			}
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (t *Topic[T]) Dropped() uint64 { return t.dropped.Load() }

// Subscribers returns the current subscriber count
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

// Bus groups the typed topics of the subsystem.
type Bus struct {
	SystemMetrics     *Topic[model.SystemMetrics]
	AIMetrics         *Topic[model.AIMetricsSnapshot]
	ProcessingMetrics *Topic[model.ProcessingStats]
	AlertCreated      *Topic[model.Alert]
	AlertAcknowledged *Topic[model.Alert]
	BenchmarkDone     *Topic[model.BenchmarkResult]
}

// NewBus creates a bus with every topic initialised
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		SystemMetrics:     NewTopic[model.SystemMetrics](SystemMetricsUpdated, logger),
		AIMetrics:         NewTopic[model.AIMetricsSnapshot](AIMetricsUpdated, logger),
		ProcessingMetrics: NewTopic[model.ProcessingStats](ProcessingMetricsUpdated, logger),
		AlertCreated:      NewTopic[model.Alert](AlertCreated, logger),
		AlertAcknowledged: NewTopic[model.Alert](AlertAcknowledged, logger),
		BenchmarkDone:     NewTopic[model.BenchmarkResult](BenchmarkCompleted, logger),
	}
}
