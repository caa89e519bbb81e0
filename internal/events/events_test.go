package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-inference-pipeline/internal/model"
)

func TestTopic_PublishSubscribe(t *testing.T) {
	topic := NewTopic[model.SystemMetrics](SystemMetricsUpdated, zap.NewNop())
	sub := topic.Subscribe(2)
	defer sub.Cancel()

	topic.Publish(model.SystemMetrics{CPUUsage: 0.5})

	got := <-sub.C
	assert.Equal(t, 0.5, got.CPUUsage)
	assert.Equal(t, 1, topic.Subscribers())
}

func TestTopic_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe(1)
	defer sub.Cancel()

	topic.Publish(1)
	topic.Publish(2)

	assert.Equal(t, 1, <-sub.C)
	assert.Equal(t, uint64(1), topic.Dropped())
}

func TestTopic_DropWarningsAreSpaced(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	topic := NewTopic[int]("test", zap.New(core))
	sub := topic.Subscribe(1)
	defer sub.Cancel()

	for i := 0; i <= 2*dropLogInterval+1; i++ {
		topic.Publish(i)
	}

	assert.Equal(t, uint64(2*dropLogInterval+1), topic.Dropped())
	entries := logs.FilterMessage("Subscriber channel full, events dropped").All()
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(1), entries[0].ContextMap()["dropped_total"])
	assert.Equal(t, uint64(dropLogInterval), entries[1].ContextMap()["dropped_total"])
	assert.Equal(t, uint64(2*dropLogInterval), entries[2].ContextMap()["dropped_total"])
}

func TestTopic_CancelClosesChannel(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe(1)
	sub.Cancel()
	sub.Cancel()

	_, ok := <-sub.C
	require.False(t, ok)
	assert.Equal(t, 0, topic.Subscribers())

	// publishing with no subscribers is a no-op
	topic.Publish(3)
}

func TestNewBus_TopicNames(t *testing.T) {
	bus := NewBus(nil)
	assert.Equal(t, SystemMetricsUpdated, bus.SystemMetrics.Name())
	assert.Equal(t, AIMetricsUpdated, bus.AIMetrics.Name())
	assert.Equal(t, ProcessingMetricsUpdated, bus.ProcessingMetrics.Name())
	assert.Equal(t, AlertCreated, bus.AlertCreated.Name())
	assert.Equal(t, AlertAcknowledged, bus.AlertAcknowledged.Name())
	assert.Equal(t, BenchmarkCompleted, bus.BenchmarkDone.Name())
}
