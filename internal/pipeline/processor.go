package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/metrics"
	"go-inference-pipeline/internal/model"
)

// ChunkProcessor handles one chunk and returns one result per input item, in order.
// Timeouts on external calls are the processor's responsibility.
type ChunkProcessor[TIn, TOut any] func(ctx context.Context, chunk []TIn) ([]TOut, error)

// BatchResult is the outcome of ProcessWithChunking. Every input item lands
// exactly once in Results (as its output) or in Failed.
type BatchResult[TIn, TOut any] struct {
	Results []TOut                `json:"results"`
	Failed  []TIn                 `json:"failed"`
	Stats   model.ProcessingStats `json:"stats"`
}

// ConcurrencyAdvisor recommends a parallelism bound from current resource pressure
type ConcurrencyAdvisor interface {
	RecommendedConcurrency() int
}

// defaultConcurrency applies when neither the caller nor an advisor sets one
const defaultConcurrency = 3

// Config configures a BatchProcessor
type Config struct {
	Defaults        model.ProcessingOptions
	Validation      ValidationOptions
	MaxErrorRecords int
}

// DefaultConfig returns the documented processing and validation defaults
func DefaultConfig() Config {
	return Config{
		Defaults:        model.DefaultProcessingOptions(),
		Validation:      DefaultValidationOptions(),
		MaxErrorRecords: DefaultMaxErrorRecords,
	}
}

// BatchProcessor runs chunked work under a concurrency limit with retries and a circuit breaker.
type BatchProcessor struct {
	defaults   model.ProcessingOptions
	validator  *ResultValidator
	advisor    ConcurrencyAdvisor
	breaker    *CircuitBreaker
	stats      *statsTracker
	maxErrors  int
	bus        *events.Bus
	collectors *metrics.Collectors
	logger     *zap.Logger
}

// NewBatchProcessor creates a processor. advisor, bus and collectors may be nil.
func NewBatchProcessor(cfg Config, advisor ConcurrencyAdvisor, bus *events.Bus, collectors *metrics.Collectors, logger *zap.Logger) (*BatchProcessor, error) {
	if err := ValidateOptions(cfg.Defaults); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		defaults:   cfg.Defaults,
		validator:  NewResultValidator(cfg.Validation),
		advisor:    advisor,
		breaker:    NewCircuitBreaker(collectors, logger),
		stats:      newStatsTracker(cfg.MaxErrorRecords),
		maxErrors:  cfg.MaxErrorRecords,
		bus:        bus,
		collectors: collectors,
		logger:     logger,
	}, nil
}

// chunkOutcome is what one chunk contributes to the batch result
type chunkOutcome[TIn, TOut any] struct {
	results []TOut
	failed  []TIn
}

// invocation holds the per-call state shared by the chunks of one ProcessWithChunking call
type invocation struct {
	id      string
	options model.ProcessingOptions
	policy  RetryPolicy
	stats   *statsTracker
}

// ProcessWithChunking splits items into chunks of at most MaxBatchSize and runs
// them concurrently through proc. Per-chunk failures are reported in the result,
// never as an error; an error is returned only for invalid options.
// Cancelling ctx stops retry waits and unstarted chunks; their items are failed.
func ProcessWithChunking[TIn, TOut any](
	ctx context.Context,
	bp *BatchProcessor,
	items []TIn,
	proc ChunkProcessor[TIn, TOut],
	opts ...Option,
) (*BatchResult[TIn, TOut], error) {
	if proc == nil {
		return nil, fmt.Errorf("%w: chunk processor is required", ErrInvalidOptions)
	}
	options, err := mergeOptions(bp.defaults, opts...)
	if err != nil {
		return nil, err
	}

	concurrency := options.Concurrency
	if concurrency == 0 {
		concurrency = bp.recommendedConcurrency()
	}

	inv := &invocation{
		id:      uuid.New().String(),
		options: options,
		policy: RetryPolicy{
			Attempts:    options.RetryAttempts,
			BaseDelay:   options.RetryDelay.Std(),
			MaxDelay:    options.MaxRetryDelay.Std(),
			Exponential: options.ExponentialBackoff,
		},
		stats: newStatsTracker(bp.maxErrors),
	}

	chunks := splitChunks(items, options.MaxBatchSize)
	bp.logger.Debug("Processing batch",
		zap.String("batch_id", inv.id),
		zap.Int("items", len(items)),
		zap.Int("chunks", len(chunks)),
		zap.Int("concurrency", concurrency))

	outcomes := make([]chunkOutcome[TIn, TOut], len(chunks))
	limiter := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(index int, chunk []TIn) {
			defer wg.Done()
			if err := limiter.Acquire(ctx, 1); err != nil {
				outcomes[index] = failChunk[TIn, TOut](bp, inv, chunk, err, time.Now(), metrics.OutcomeCancelled)
				return
			}
			defer limiter.Release(1)
			outcomes[index] = processChunk(ctx, bp, inv, index, chunk, proc)
		}(i, chunk)
	}
	wg.Wait()

	result := &BatchResult[TIn, TOut]{
		Results: make([]TOut, 0, len(items)),
		Failed:  make([]TIn, 0),
	}
	for _, outcome := range outcomes {
		result.Results = append(result.Results, outcome.results...)
		result.Failed = append(result.Failed, outcome.failed...)
	}
	result.Stats = inv.stats.snapshot()

	bp.logger.Info("Batch processed",
		zap.String("batch_id", inv.id),
		zap.Int("succeeded", len(result.Results)),
		zap.Int("failed", len(result.Failed)),
		zap.Int64("retries", result.Stats.RetryCount))

	if bp.bus != nil {
		bp.bus.ProcessingMetrics.Publish(bp.Stats())
	}
	return result, nil
}

// processChunk runs one chunk with retries and resolves it to success or failure
func processChunk[TIn, TOut any](
	ctx context.Context,
	bp *BatchProcessor,
	inv *invocation,
	index int,
	chunk []TIn,
	proc ChunkProcessor[TIn, TOut],
) chunkOutcome[TIn, TOut] {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= inv.options.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, inv.policy.Delay(attempt-1)); err != nil {
				return failChunk[TIn, TOut](bp, inv, chunk, err, start, metrics.OutcomeCancelled)
			}
			inv.stats.recordRetry()
			bp.stats.recordRetry()
			bp.collectors.IncRetries()
		}
		if err := ctx.Err(); err != nil {
			return failChunk[TIn, TOut](bp, inv, chunk, err, start, metrics.OutcomeCancelled)
		}
		if !bp.breaker.Allow() {
			return failChunk[TIn, TOut](bp, inv, chunk, ErrCircuitOpen, start, metrics.OutcomeCircuitOpen)
		}

		out, err := invokeChunk(ctx, chunk, proc)
		if err == nil {
			err = checkResults(bp, len(chunk), out)
		}
		if err == nil {
			bp.breaker.RecordSuccess()
			elapsed := time.Since(start)
			inv.stats.recordChunk(len(chunk), 0, elapsed)
			bp.stats.recordChunk(len(chunk), 0, elapsed)
			bp.collectors.ObserveChunk(metrics.OutcomeSuccess, len(chunk), elapsed)
			return chunkOutcome[TIn, TOut]{results: out}
		}

		lastErr = err
		bp.logger.Debug("Chunk attempt failed",
			zap.String("batch_id", inv.id),
			zap.Int("chunk", index),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	bp.logger.Warn("Chunk failed after retries",
		zap.String("batch_id", inv.id),
		zap.Int("chunk", index),
		zap.Int("items", len(chunk)),
		zap.Int("attempts", inv.options.RetryAttempts+1),
		zap.Error(lastErr))

	if bp.breaker.RecordFailure(inv.options.CircuitBreaker) {
		inv.stats.recordTrip()
		bp.stats.recordTrip()
	}
	return failChunk[TIn, TOut](bp, inv, chunk, lastErr, start, metrics.OutcomeFailure)
}

// failChunk records every item of chunk as failed
func failChunk[TIn, TOut any](bp *BatchProcessor, inv *invocation, chunk []TIn, cause error, start time.Time, outcome string) chunkOutcome[TIn, TOut] {
	now := time.Now()
	elapsed := now.Sub(start)
	message := cause.Error()

	inv.stats.recordChunk(0, len(chunk), elapsed)
	inv.stats.recordError(message, now)
	bp.stats.recordChunk(0, len(chunk), elapsed)
	bp.stats.recordError(message, now)
	bp.collectors.ObserveChunk(outcome, len(chunk), elapsed)

	failed := make([]TIn, len(chunk))
	copy(failed, chunk)
	return chunkOutcome[TIn, TOut]{failed: failed}
}

// invokeChunk turns a panicking processor into a chunk failure
func invokeChunk[TIn, TOut any](ctx context.Context, chunk []TIn, proc ChunkProcessor[TIn, TOut]) (out []TOut, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chunk processor panicked: %v", r)
		}
	}()
	return proc(ctx, chunk)
}

// checkResults requires one valid result per item
func checkResults[TOut any](bp *BatchProcessor, want int, out []TOut) error {
	if len(out) != want {
		return fmt.Errorf("%w: chunk processor returned %d results for %d items", ErrValidationFailed, len(out), want)
	}
	for i, r := range out {
		if err := bp.validator.CheckResult(r); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (bp *BatchProcessor) recommendedConcurrency() int {
	if bp.advisor == nil {
		return defaultConcurrency
	}
	if n := bp.advisor.RecommendedConcurrency(); n > 0 {
		return n
	}
	return 1
}

// splitChunks cuts items into consecutive chunks of at most size
func splitChunks[T any](items []T, size int) [][]T {
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Stats returns the processor's cumulative counters
func (bp *BatchProcessor) Stats() model.ProcessingStats {
	return bp.stats.snapshot()
}

// Errors summarises the recent error ring
func (bp *BatchProcessor) Errors() model.ErrorSummary {
	return bp.stats.summary()
}

// ResetStats clears the cumulative counters and error ring
func (bp *BatchProcessor) ResetStats() {
	bp.stats.reset()
}

// CircuitState returns the breaker state
func (bp *BatchProcessor) CircuitState() model.CircuitBreakerState {
	return bp.breaker.State()
}

// ResetCircuit force-closes the breaker
func (bp *BatchProcessor) ResetCircuit() {
	bp.breaker.Reset()
}

// ProcessorConfig is the effective configuration reported by the monitoring API
type ProcessorConfig struct {
	Defaults               model.ProcessingOptions   `json:"defaults"`
	Validation             ValidationOptions         `json:"validation"`
	RecommendedConcurrency int                       `json:"recommendedConcurrency"`
	CircuitBreaker         model.CircuitBreakerState `json:"circuitBreaker"`
}

// Config returns the effective configuration
func (bp *BatchProcessor) Config() ProcessorConfig {
	return ProcessorConfig{
		Defaults:               bp.defaults,
		Validation:             bp.validator.Options,
		RecommendedConcurrency: bp.recommendedConcurrency(),
		CircuitBreaker:         bp.breaker.State(),
	}
}
