package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-inference-pipeline/internal/alerting"
	"go-inference-pipeline/internal/api"
	"go-inference-pipeline/internal/api/handler"
	"go-inference-pipeline/internal/benchmark"
	"go-inference-pipeline/internal/config"
	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/inference"
	"go-inference-pipeline/internal/metrics"
	"go-inference-pipeline/internal/monitor"
	"go-inference-pipeline/internal/pipeline"
	"go-inference-pipeline/internal/store"
	"go-inference-pipeline/pkg/router"
	"go-inference-pipeline/pkg/utils"
)

// App owns every long-lived component of the process
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registry   *prometheus.Registry
	Bus        *events.Bus
	Collectors *metrics.Collectors
	Store      *store.Store // nil when persistence is disabled

	Monitor    *monitor.SystemMonitor
	Processor  *pipeline.BatchProcessor
	Inference  *inference.Service
	Alerts     *alerting.Engine
	Benchmarks *benchmark.Runner
	Output     *utils.OutputManager

	cancel context.CancelFunc
}

// NewLogger builds a development logger for debug and a production logger otherwise
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Options replace default dependencies, mainly for tests
type Options struct {
	Sampler  monitor.Sampler
	Analyzer inference.Analyzer
}

// New wires the components described by cfg
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	coll, err := metrics.NewCollectors(registry)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Bus:        events.NewBus(logger.Named("events")),
		Collectors: coll,
		Output:     utils.NewOutputManager(cfg.Benchmark.OutputDir),
	}

	if cfg.Store.Path != "" {
		if a.Store, err = store.Open(cfg.Store.Path); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	sampler := opts.Sampler
	if sampler == nil {
		sampler = monitor.NewHostSampler()
	}
	a.Monitor = monitor.New(cfg.MonitorConfig(), sampler, a.Bus, coll, logger.Named("monitor"))

	a.Processor, err = pipeline.NewBatchProcessor(cfg.PipelineConfig(), a.Monitor, a.Bus, coll, logger.Named("pipeline"))
	if err != nil {
		a.Close()
		return nil, err
	}

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = inference.NewSimulatedAnalyzer(cfg.SimulatedConfig())
	}
	a.Inference = inference.NewService(cfg.InferenceConfig(), analyzer, a.Processor, a.Bus, logger.Named("inference"))

	// typed nil interfaces would defeat the components' nil checks
	var alertStore alerting.AlertStore
	var resultStore benchmark.ResultStore
	if a.Store != nil {
		alertStore, resultStore = a.Store, a.Store
	}
	a.Alerts = alerting.NewEngine(cfg.AlertingConfig(), alertStore, a.Bus, coll, logger.Named("alerting"))
	a.Benchmarks = benchmark.NewRunner(a.Inference, a.Monitor, resultStore, a.Bus, logger.Named("benchmark"))
	return a, nil
}

// Start restores persisted state and starts the background tasks
func (a *App) Start(ctx context.Context) error {
	if err := a.Alerts.Load(ctx); err != nil {
		return err
	}
	if err := a.Benchmarks.Load(ctx); err != nil {
		return err
	}

	ctx, a.cancel = context.WithCancel(ctx)
	// subscribed before the monitor publishes its first sample
	a.Alerts.Start(ctx)
	a.Monitor.Start(ctx)
	return nil
}

// Handler returns the HTTP surface
func (a *App) Handler() *router.Router {
	r := router.New(a.Logger.Named("http"))
	api.RegisterRoutes(r, &handler.MonitoringHandler{
		Monitor:    a.Monitor,
		Processor:  a.Processor,
		Inference:  a.Inference,
		Alerts:     a.Alerts,
		Benchmarks: a.Benchmarks,
		Logger:     a.Logger.Named("api"),
	}, a.Registry)
	return r
}

// Serve starts the background tasks and serves HTTP until ctx is done
func (a *App) Serve(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Handler().Start(ctx, a.Config.Server.Addr)
}

// Close stops background tasks and releases the store
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
