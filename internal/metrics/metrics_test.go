package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inference-pipeline/internal/model"
)

func TestCollectors_Record(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := NewCollectors(registry)
	require.NoError(t, err)

	c.ObserveChunk(OutcomeSuccess, 5, 20*time.Millisecond)
	c.ObserveChunk(OutcomeFailure, 3, 40*time.Millisecond)
	c.IncRetries()
	c.SetBreakerOpen(true)
	c.ObserveSystem(model.SystemMetrics{CPUUsage: 0.25}, 4)
	c.IncAlert(model.SeverityCritical, model.SourceSystem)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.itemsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.chunksTotal.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerTripsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerOpen))
	assert.Equal(t, 0.25, testutil.ToFloat64(c.cpuUsage))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.recommendedConcurrency))

	c.SetBreakerOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.breakerOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerTripsTotal))
}

func TestCollectors_DoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewCollectors(registry)
	require.NoError(t, err)

	_, err = NewCollectors(registry)
	assert.Error(t, err)
}

func TestCollectors_NilSafe(t *testing.T) {
	var c *Collectors
	c.ObserveChunk(OutcomeSuccess, 1, time.Millisecond)
	c.IncRetries()
	c.SetBreakerOpen(true)
	c.ObserveSystem(model.SystemMetrics{}, 1)
	c.IncAlert(model.SeverityInfo, model.SourceAI)
}
