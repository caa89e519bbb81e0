package pipeline

import (
	"errors"
	"fmt"
	"time"

	"go-inference-pipeline/internal/model"
)

// ErrInvalidOptions is returned before scheduling when the merged options are unusable
var ErrInvalidOptions = errors.New("invalid processing options")

// Option overrides one processing option for a single invocation
type Option func(*model.ProcessingOptions)

// WithOptions replaces every option at once
func WithOptions(opts model.ProcessingOptions) Option {
	return func(o *model.ProcessingOptions) { *o = opts }
}

// WithConcurrency bounds concurrently running chunks; 0 uses the monitor's recommendation.
func WithConcurrency(n int) Option {
	return func(o *model.ProcessingOptions) { o.Concurrency = n }
}

func WithMaxBatchSize(n int) Option {
	return func(o *model.ProcessingOptions) { o.MaxBatchSize = n }
}

func WithRetryAttempts(n int) Option {
	return func(o *model.ProcessingOptions) { o.RetryAttempts = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *model.ProcessingOptions) { o.RetryDelay = model.Duration(d) }
}

func WithMaxRetryDelay(d time.Duration) Option {
	return func(o *model.ProcessingOptions) { o.MaxRetryDelay = model.Duration(d) }
}

func WithExponentialBackoff(enabled bool) Option {
	return func(o *model.ProcessingOptions) { o.ExponentialBackoff = enabled }
}

// WithCircuitBreaker sets the trip threshold and how long the breaker stays open
func WithCircuitBreaker(failureThreshold int, resetTimeout time.Duration) Option {
	return func(o *model.ProcessingOptions) {
		o.CircuitBreaker = model.CircuitBreakerOptions{
			FailureThreshold: failureThreshold,
			ResetTimeout:     model.Duration(resetTimeout),
		}
	}
}

// mergeOptions applies opts over base and validates the result
func mergeOptions(base model.ProcessingOptions, opts ...Option) (model.ProcessingOptions, error) {
	merged := base
	for _, opt := range opts {
		if opt != nil {
			opt(&merged)
		}
	}
	if err := ValidateOptions(merged); err != nil {
		return merged, err
	}
	return merged, nil
}

// ValidateOptions reports the first unusable option
func ValidateOptions(o model.ProcessingOptions) error {
	switch {
	case o.Concurrency < 0:
		return fmt.Errorf("%w: concurrency must be >= 0, got %d", ErrInvalidOptions, o.Concurrency)
	case o.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max batch size must be positive, got %d", ErrInvalidOptions, o.MaxBatchSize)
	case o.RetryAttempts < 0:
		return fmt.Errorf("%w: retry attempts must be >= 0, got %d", ErrInvalidOptions, o.RetryAttempts)
	case o.RetryDelay < 0 || o.MaxRetryDelay < 0:
		return fmt.Errorf("%w: retry delays must be >= 0", ErrInvalidOptions)
	case o.CircuitBreaker.FailureThreshold <= 0:
		return fmt.Errorf("%w: failure threshold must be positive, got %d", ErrInvalidOptions, o.CircuitBreaker.FailureThreshold)
	case o.CircuitBreaker.ResetTimeout <= 0:
		return fmt.Errorf("%w: reset timeout must be positive", ErrInvalidOptions)
	}
	return nil
}
