package model

import "time"

// CircuitBreakerOptions defines when the breaker trips and how long it stays open
type CircuitBreakerOptions struct {
	FailureThreshold int      `json:"failureThreshold"` // consecutive chunk failures before opening
	ResetTimeout     Duration `json:"resetTimeout"`     // how long the breaker stays open
}

// ProcessingOptions controls one chunked processing invocation.
type ProcessingOptions struct {
	Concurrency        int                   `json:"concurrency"` // 0 = use recommended concurrency
	MaxBatchSize       int                   `json:"maxBatchSize"`
	RetryAttempts      int                   `json:"retryAttempts"` // retries after the first attempt
	RetryDelay         Duration              `json:"retryDelay"`
	ExponentialBackoff bool                  `json:"exponentialBackoff"`
	MaxRetryDelay      Duration              `json:"maxRetryDelay"`
	CircuitBreaker     CircuitBreakerOptions `json:"circuitBreaker"`
}

// DefaultProcessingOptions returns the documented defaults.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		Concurrency:        0,
		MaxBatchSize:       10,
		RetryAttempts:      3,
		RetryDelay:         Duration(time.Second),
		ExponentialBackoff: true,
		MaxRetryDelay:      Duration(10 * time.Second),
		CircuitBreaker: CircuitBreakerOptions{
			FailureThreshold: 5,
			ResetTimeout:     Duration(time.Minute),
		},
	}
}

// ErrorRecord is one entry of the recent error ring
type ErrorRecord struct {
	Message  string    `json:"message"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// ProcessingStats are the counters of a BatchProcessor.
// TotalProcessed always equals SuccessCount + FailureCount.
type ProcessingStats struct {
	TotalProcessed      int64         `json:"totalProcessed"`
	SuccessCount        int64         `json:"successCount"`
	FailureCount        int64         `json:"failureCount"`
	ChunksProcessed     int64         `json:"chunksProcessed"`
	TotalTime           Duration      `json:"totalTime"`
	AverageTime         Duration      `json:"averageTime"` // per chunk
	RetryCount          int64         `json:"retryCount"`
	CircuitBreakerTrips int64         `json:"circuitBreakerTrips"`
	RecentErrors        []ErrorRecord `json:"recentErrors"`
}

// MetricFields exposes the numeric fields alert rules can reference.
func (s ProcessingStats) MetricFields() map[string]float64 {
	failureRate := 0.0
	if s.TotalProcessed > 0 {
		failureRate = float64(s.FailureCount) / float64(s.TotalProcessed)
	}
	return map[string]float64{
		"totalProcessed":      float64(s.TotalProcessed),
		"successCount":        float64(s.SuccessCount),
		"failureCount":        float64(s.FailureCount),
		"failureRate":         failureRate,
		"averageTime":         s.AverageTime.Milliseconds(),
		"retryCount":          float64(s.RetryCount),
		"circuitBreakerTrips": float64(s.CircuitBreakerTrips),
	}
}

// CircuitBreakerState is a point-in-time copy of a breaker
type CircuitBreakerState struct {
	IsOpen              bool      `json:"isOpen"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastFailureAt       time.Time `json:"lastFailureAt,omitempty"`
	OpenedAt            time.Time `json:"openedAt,omitempty"`
	ResetAt             time.Time `json:"resetAt,omitempty"` // when an open breaker closes again
}

// ErrorSummary aggregates the recent error ring for operators
type ErrorSummary struct {
	Total    int64         `json:"total"`
	Unique   int           `json:"unique"`
	Frequent []ErrorRecord `json:"frequent"`
	Recent   []ErrorRecord `json:"recent"`
}
