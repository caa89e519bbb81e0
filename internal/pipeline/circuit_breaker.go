package pipeline

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/metrics"
	"go-inference-pipeline/internal/model"
)

// ErrCircuitOpen is the fast failure returned while the breaker sheds load
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker counts consecutive chunk failures. Once open it stays open for
// the reset timeout captured at trip time; failures while open do not re-trip it.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        model.CircuitBreakerState
	resetTimeout time.Duration
	epoch        uint64
	timer        *time.Timer

	now        func() time.Time
	collectors *metrics.Collectors
	logger     *zap.Logger
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(collectors *metrics.Collectors, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		now:        time.Now,
		collectors: collectors,
		logger:     logger,
	}
}

// Allow reports whether a new chunk attempt may run. An open breaker whose
// reset timeout elapsed is closed here as well as by its timer.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.state.IsOpen {
		return true
	}
	if cb.now().Sub(cb.state.OpenedAt) >= cb.resetTimeout {
		cb.resetLocked()
		return true
	}
	return false
}

// RecordSuccess clears the consecutive failure count of a closed breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.state.IsOpen {
		cb.state.ConsecutiveFailures = 0
	}
}

// RecordFailure counts a chunk that exhausted its retries and reports whether it tripped the breaker.
func (cb *CircuitBreaker) RecordFailure(opts model.CircuitBreakerOptions) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.LastFailureAt = cb.now()
	if cb.state.IsOpen {
		return false
	}

	cb.state.ConsecutiveFailures++
	if cb.state.ConsecutiveFailures < opts.FailureThreshold {
		return false
	}

	cb.state.IsOpen = true
	cb.state.OpenedAt = cb.now()
	cb.resetTimeout = opts.ResetTimeout.Std()
	cb.state.ResetAt = cb.state.OpenedAt.Add(cb.resetTimeout)
	cb.epoch++
	epoch := cb.epoch
	cb.timer = time.AfterFunc(cb.resetTimeout, func() { cb.resetAfterTimeout(epoch) })

	cb.collectors.SetBreakerOpen(true)
	cb.logger.Warn("Circuit breaker opened",
		zap.Int("consecutive_failures", cb.state.ConsecutiveFailures),
		zap.Duration("reset_timeout", cb.resetTimeout))
	return true
}

func (cb *CircuitBreaker) resetAfterTimeout(epoch uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// a lazy reset in Allow may already have closed this trip
	if cb.epoch != epoch || !cb.state.IsOpen {
		return
	}
	cb.resetLocked()
}

func (cb *CircuitBreaker) resetLocked() {
	if cb.timer != nil {
		cb.timer.Stop()
		cb.timer = nil
	}
	wasOpen := cb.state.IsOpen
	cb.state.IsOpen = false
	cb.state.ConsecutiveFailures = 0
	cb.state.OpenedAt = time.Time{}
	cb.state.ResetAt = time.Time{}
	if wasOpen {
		cb.collectors.SetBreakerOpen(false)
		cb.logger.Info("Circuit breaker reset")
	}
}

// Reset force-closes the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.epoch++
	cb.resetLocked()
}

// State returns a copy of the breaker state
func (cb *CircuitBreaker) State() model.CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
