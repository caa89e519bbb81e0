package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/pipeline"
)

var (
	ErrAlreadyRunning = errors.New("benchmark already running")
	ErrResultNotFound = errors.New("benchmark result not found")
	ErrInvalidConfig  = errors.New("invalid benchmark config")
)

// Phase is the state of the runner's state machine
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseWarmup   Phase = "warmup"
	PhaseRunning  Phase = "running"
	PhaseCooldown Phase = "cooldown"
)

// Defaults for optional config fields
const (
	DefaultConcurrency = 1
	DefaultBatchSize   = 10
)

// Target is the batch entry point under test
type Target interface {
	AnalyzeImages(ctx context.Context, reqs []model.AnalysisRequest, opts ...pipeline.Option) (*pipeline.BatchResult[model.AnalysisRequest, model.AnalysisResult], error)
}

// CircuitSource is implemented by targets guarded by a circuit breaker.
// Submitters pause while it is open instead of resubmitting into it.
type CircuitSource interface {
	CircuitState() model.CircuitBreakerState
}

// circuitOpenPause applies when an open breaker reports no reset time
const circuitOpenPause = 100 * time.Millisecond

// ResourceSource supplies the resource snapshot recorded with a result
type ResourceSource interface {
	Latest() (model.SystemMetrics, bool)
}

// ResultStore persists results across restarts
type ResultStore interface {
	SaveBenchmarkResult(ctx context.Context, result model.BenchmarkResult) error
	ListBenchmarkResults(ctx context.Context, limit int) ([]model.BenchmarkResult, error)
}

// Runner executes one benchmark at a time and keeps every completed result.
type Runner struct {
	target    Target
	resources ResourceSource
	store     ResultStore
	bus       *events.Bus
	logger    *zap.Logger

	active atomic.Bool
	phase  atomic.Value // Phase

	mu      sync.RWMutex
	results []model.BenchmarkResult // oldest first
}

// NewRunner creates a runner. resources, store and bus may be nil.
func NewRunner(target Target, resources ResourceSource, store ResultStore, bus *events.Bus, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		target:    target,
		resources: resources,
		store:     store,
		bus:       bus,
		logger:    logger,
	}
	r.phase.Store(PhaseIdle)
	return r
}

// Load restores stored results
func (r *Runner) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	stored, err := r.store.ListBenchmarkResults(ctx, 0)
	if err != nil {
		return fmt.Errorf("load benchmark results: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make([]model.BenchmarkResult, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		r.results = append(r.results, stored[i])
	}
	r.logger.Info("Benchmark results restored", zap.Int("count", len(r.results)))
	return nil
}

// Status returns the current phase
func (r *Runner) Status() Phase {
	return r.phase.Load().(Phase)
}

// run accumulates the samples of one run
type run struct {
	mu        sync.Mutex
	latencies []time.Duration
	errors    int
	items     int64
	batches   int64
	pauses    int
	paused    time.Duration
}

func (rn *run) record(latency time.Duration, result *pipeline.BatchResult[model.AnalysisRequest, model.AnalysisResult], err error) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.batches++
	if result != nil {
		rn.items += int64(len(result.Results))
	}
	if err != nil || result == nil || len(result.Failed) > 0 {
		rn.errors++
		return
	}
	rn.latencies = append(rn.latencies, latency)
}

func (rn *run) recordPause(d time.Duration) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.pauses++
	rn.paused += d
}

// Run executes cfg and stores the result. Only one run may be active; a
// concurrent call fails with ErrAlreadyRunning.
func (r *Runner) Run(ctx context.Context, cfg model.BenchmarkConfig) (model.BenchmarkResult, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return model.BenchmarkResult{}, err
	}
	if !r.active.CompareAndSwap(false, true) {
		return model.BenchmarkResult{}, ErrAlreadyRunning
	}
	defer func() {
		r.phase.Store(PhaseIdle)
		r.active.Store(false)
	}()

	id := uuid.New().String()
	logger := r.logger.With(zap.String("benchmark_id", id), zap.String("name", cfg.Name))
	logger.Info("Benchmark started",
		zap.Duration("duration", cfg.Duration.Std()),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("batch_size", cfg.BatchSize))

	if cfg.Warmup > 0 {
		r.phase.Store(PhaseWarmup)
		if err := sleepContext(ctx, cfg.Warmup.Std()); err != nil {
			return model.BenchmarkResult{}, err
		}
	}

	r.phase.Store(PhaseRunning)
	rn := &run{}
	start := time.Now()
	deadline := start.Add(cfg.Duration.Std())

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		worker := w
		g.Go(func() error {
			for seq := 0; time.Now().Before(deadline); seq++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				reqs := syntheticRequests(id, worker, seq, cfg.BatchSize)
				batchStart := time.Now()
				result, err := r.target.AnalyzeImages(gctx, reqs, pipeline.WithMaxBatchSize(cfg.BatchSize))
				rn.record(time.Since(batchStart), result, err)

				if wait := r.circuitWait(result, err, deadline); wait > 0 {
					rn.recordPause(wait)
					if err := sleepContext(gctx, wait); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Benchmark aborted", zap.Error(err))
		return model.BenchmarkResult{}, err
	}
	elapsed := time.Since(start)

	if cfg.Cooldown > 0 {
		r.phase.Store(PhaseCooldown)
		if err := sleepContext(ctx, cfg.Cooldown.Std()); err != nil {
			return model.BenchmarkResult{}, err
		}
	}

	result := r.summarize(id, cfg, rn, elapsed)
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveBenchmarkResult(ctx, result); err != nil {
			logger.Error("Failed to persist benchmark result", zap.Error(err))
		}
	}
	if r.bus != nil {
		r.bus.BenchmarkDone.Publish(result)
	}

	logger.Info("Benchmark completed",
		zap.Float64("throughput", result.Throughput),
		zap.Float64("p95_ms", result.Latency.P95),
		zap.Float64("error_rate", result.ErrorRate))
	return result, nil
}

// circuitWait returns how long a submitter should hold off after a failed
// batch: until the target's breaker closes, bounded by the run deadline.
func (r *Runner) circuitWait(result *pipeline.BatchResult[model.AnalysisRequest, model.AnalysisResult], err error, deadline time.Time) time.Duration {
	if err == nil && result != nil && len(result.Failed) == 0 {
		return 0
	}
	cs, ok := r.target.(CircuitSource)
	if !ok {
		return 0
	}
	state := cs.CircuitState()
	if !state.IsOpen {
		return 0
	}
	until := state.ResetAt
	if until.IsZero() {
		until = time.Now().Add(circuitOpenPause)
	}
	if until.After(deadline) {
		until = deadline
	}
	return time.Until(until)
}

func (r *Runner) summarize(id string, cfg model.BenchmarkConfig, rn *run, elapsed time.Duration) model.BenchmarkResult {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	result := model.BenchmarkResult{
		ID:         id,
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Duration:   model.Duration(elapsed),
		Config:     cfg,
		TotalItems: rn.items,
		Samples:    len(rn.latencies),
		Errors:     rn.errors,
		Latency:    latencyStats(rn.latencies),
		Context: map[string]interface{}{
			"batches":    rn.batches,
			"goVersion":  runtime.Version(),
			"numCPU":     runtime.NumCPU(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
	if rn.pauses > 0 {
		result.Context["circuitOpenPauses"] = rn.pauses
		result.Context["circuitOpenWaitMs"] = rn.paused.Milliseconds()
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result.Throughput = float64(rn.items) / secs
	}
	if attempts := len(rn.latencies) + rn.errors; attempts > 0 {
		result.ErrorRate = float64(rn.errors) / float64(attempts)
	}
	if r.resources != nil {
		if m, ok := r.resources.Latest(); ok {
			result.ResourceUsage = m
		}
	}
	return result
}

func normalizeConfig(cfg model.BenchmarkConfig) (model.BenchmarkConfig, error) {
	if cfg.Duration <= 0 {
		return cfg, fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if cfg.Concurrency < 0 || cfg.BatchSize < 0 || cfg.Warmup < 0 || cfg.Cooldown < 0 {
		return cfg, fmt.Errorf("%w: negative values are not allowed", ErrInvalidConfig)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Name == "" {
		cfg.Name = "benchmark"
	}
	return cfg, nil
}

func syntheticRequests(runID string, worker, seq, size int) []model.AnalysisRequest {
	reqs := make([]model.AnalysisRequest, size)
	for i := range reqs {
		n := seq*size + i
		reqs[i] = model.AnalysisRequest{
			ID:       fmt.Sprintf("%s-%d-%d", runID[:8], worker, n),
			ImageURL: fmt.Sprintf("https://benchmark.local/images/%d.jpg", n%1000),
		}
	}
	return reqs
}

// percentile picks the sorted sample at index ceil(p/100*n)-1
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func latencyStats(samples []time.Duration) model.LatencyStats {
	if len(samples) == 0 {
		return model.LatencyStats{}
	}
	ms := make([]float64, len(samples))
	var sum float64
	for i, d := range samples {
		ms[i] = float64(d) / float64(time.Millisecond)
		sum += ms[i]
	}
	sort.Float64s(ms)
	return model.LatencyStats{
		Min: ms[0],
		Max: ms[len(ms)-1],
		Avg: sum / float64(len(ms)),
		P95: percentile(ms, 95),
		P99: percentile(ms, 99),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// List returns up to limit results, newest first; limit <= 0 means all.
func (r *Runner) List(limit int) []model.BenchmarkResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.BenchmarkResult{}
	for i := len(r.results) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.results[i])
	}
	return out
}

// Get returns the result with id
func (r *Runner) Get(id string) (model.BenchmarkResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.results {
		if res.ID == id {
			return res, nil
		}
	}
	return model.BenchmarkResult{}, fmt.Errorf("%w: %s", ErrResultNotFound, id)
}

// Latest returns the most recent result
func (r *Runner) Latest() (model.BenchmarkResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.results) == 0 {
		return model.BenchmarkResult{}, ErrResultNotFound
	}
	return r.results[len(r.results)-1], nil
}

// Compare returns candidate minus baseline for every numeric field
func (r *Runner) Compare(baselineID, candidateID string) (model.BenchmarkComparison, error) {
	a, err := r.Get(baselineID)
	if err != nil {
		return model.BenchmarkComparison{}, err
	}
	b, err := r.Get(candidateID)
	if err != nil {
		return model.BenchmarkComparison{}, err
	}
	return model.BenchmarkComparison{
		BaselineID:  a.ID,
		CandidateID: b.ID,
		Throughput:  b.Throughput - a.Throughput,
		Latency: model.LatencyStats{
			Min: b.Latency.Min - a.Latency.Min,
			Max: b.Latency.Max - a.Latency.Max,
			Avg: b.Latency.Avg - a.Latency.Avg,
			P95: b.Latency.P95 - a.Latency.P95,
			P99: b.Latency.P99 - a.Latency.P99,
		},
		ErrorRate:       b.ErrorRate - a.ErrorRate,
		CPUUsage:        b.ResourceUsage.CPUUsage - a.ResourceUsage.CPUUsage,
		MemoryUsage:     b.ResourceUsage.MemoryUsage - a.ResourceUsage.MemoryUsage,
		LoadAverage:     b.ResourceUsage.LoadAverage - a.ResourceUsage.LoadAverage,
		ActiveProcesses: b.ResourceUsage.ActiveProcesses - a.ResourceUsage.ActiveProcesses,
	}, nil
}
