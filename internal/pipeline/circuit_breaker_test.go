package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-inference-pipeline/internal/model"
)

func breakerOpts(threshold int, reset time.Duration) model.CircuitBreakerOptions {
	return model.CircuitBreakerOptions{FailureThreshold: threshold, ResetTimeout: model.Duration(reset)}
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(nil, nil)
	opts := breakerOpts(3, time.Hour)

	assert.False(t, cb.RecordFailure(opts))
	assert.False(t, cb.RecordFailure(opts))
	assert.True(t, cb.Allow())
	assert.True(t, cb.RecordFailure(opts))

	state := cb.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, 3, state.ConsecutiveFailures)
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(nil, nil)
	opts := breakerOpts(2, time.Hour)

	cb.RecordFailure(opts)
	cb.RecordSuccess()
	assert.False(t, cb.RecordFailure(opts))
	assert.False(t, cb.State().IsOpen)
}

func TestCircuitBreaker_FailuresWhileOpenDoNotRetrip(t *testing.T) {
	cb := NewCircuitBreaker(nil, nil)
	now := time.Now()
	cb.now = func() time.Time { return now }
	opts := breakerOpts(1, time.Hour)

	assert.True(t, cb.RecordFailure(opts))
	openedAt := cb.State().OpenedAt

	now = now.Add(30 * time.Minute)
	assert.False(t, cb.RecordFailure(opts))
	cb.RecordSuccess()

	state := cb.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, openedAt, state.OpenedAt)
	assert.Equal(t, openedAt.Add(time.Hour), state.ResetAt)
	assert.Equal(t, 1, state.ConsecutiveFailures)
	assert.Equal(t, now, state.LastFailureAt)

	// the original timeout still governs the reset
	now = openedAt.Add(time.Hour)
	assert.True(t, cb.Allow())
	assert.False(t, cb.State().IsOpen)
	assert.Equal(t, 0, cb.State().ConsecutiveFailures)
	assert.True(t, cb.State().ResetAt.IsZero())
}

func TestCircuitBreaker_TimerResets(t *testing.T) {
	cb := NewCircuitBreaker(nil, nil)
	cb.RecordFailure(breakerOpts(1, 20*time.Millisecond))
	assert.True(t, cb.State().IsOpen)

	assert.Eventually(t, func() bool { return !cb.State().IsOpen }, time.Second, 5*time.Millisecond)
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(nil, nil)
	cb.RecordFailure(breakerOpts(1, time.Hour))
	cb.Reset()
	assert.False(t, cb.State().IsOpen)
	assert.True(t, cb.Allow())
}
