package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/pipeline"
)

// Analyzer runs quality inference for a single image
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResult, error)
}

// Config configures the inference Service
type Config struct {
	Timeout      time.Duration `json:"timeout"`
	ModelVersion string        `json:"modelVersion"`
}

// DefaultConfig returns the production call timeout and model version
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, ModelVersion: "1.0.0"}
}

// Service is the inference entry point used by the business layer. Each
// Analyze call is bounded by Config.Timeout; batches run through the
// BatchProcessor so they inherit its retries and circuit breaker.
type Service struct {
	cfg       Config
	analyzer  Analyzer
	processor *pipeline.BatchProcessor
	bus       *events.Bus
	logger    *zap.Logger

	mu        sync.Mutex
	total     int64
	succeeded int64
	failed    int64
	totalTime time.Duration
}

// NewService wires an analyzer to a batch processor. bus may be nil.
func NewService(cfg Config, analyzer Analyzer, processor *pipeline.BatchProcessor, bus *events.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Service{
		cfg:       cfg,
		analyzer:  analyzer,
		processor: processor,
		bus:       bus,
		logger:    logger,
	}
}

// Analyze runs one request under the per-call timeout.
func (s *Service) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.analyzer.Analyze(callCtx, req)
	s.record(err == nil, time.Since(start))
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyze %s: %w", req.ID, err)
	}
	if result.ID == "" {
		result.ID = req.ID
	}
	if result.ImageURL == "" {
		result.ImageURL = req.ImageURL
	}
	return result, nil
}

// AnalyzeBatch is a chunk processor: it analyses requests in order and fails
// the whole chunk on the first error.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []model.AnalysisRequest) ([]model.AnalysisResult, error) {
	defer s.publish()

	results := make([]model.AnalysisResult, 0, len(reqs))
	for _, req := range reqs {
		result, err := s.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// AnalyzeImages analyses reqs through the batch processor
func (s *Service) AnalyzeImages(ctx context.Context, reqs []model.AnalysisRequest, opts ...pipeline.Option) (*pipeline.BatchResult[model.AnalysisRequest, model.AnalysisResult], error) {
	result, err := pipeline.ProcessWithChunking[model.AnalysisRequest, model.AnalysisResult](ctx, s.processor, reqs, s.AnalyzeBatch, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Images analysed",
		zap.Int("requested", len(reqs)),
		zap.Int("analysed", len(result.Results)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *Service) record(ok bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.totalTime += elapsed
	if ok {
		s.succeeded++
	} else {
		s.failed++
	}
}

// Metrics returns the current AI metrics snapshot
func (s *Service) Metrics() model.AIMetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.AIMetricsSnapshot{
		TotalRequests: s.total,
		Successful:    s.succeeded,
		Failed:        s.failed,
		Timestamp:     time.Now(),
	}
	if s.total > 0 {
		snap.ErrorRate = float64(s.failed) / float64(s.total)
		snap.AverageProcessingTime = float64(s.totalTime) / float64(s.total) / float64(time.Millisecond)
	}
	return snap
}

func (s *Service) publish() {
	if s.bus != nil {
		s.bus.AIMetrics.Publish(s.Metrics())
	}
}

// CircuitState returns the state of the processor's circuit breaker
func (s *Service) CircuitState() model.CircuitBreakerState {
	return s.processor.CircuitState()
}

// Config returns the service configuration
func (s *Service) Config() Config {
	return s.cfg
}
