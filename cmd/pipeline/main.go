package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go-inference-pipeline/internal/app"
	"go-inference-pipeline/internal/config"
	"go-inference-pipeline/internal/inference"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/pipeline"
)

const version = "1.0.0"

var (
	configPath string
	logLevel   string
	addr       string
	storePath  string

	benchName        string
	benchDuration    time.Duration
	benchConcurrency int
	benchBatchSize   int
	benchWarmup      time.Duration
	benchCooldown    time.Duration
	benchOutput      string

	analyzeInput     string
	analyzeOutput    string
	analyzeBatchSize int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Resilient batch inference with monitoring, alerting and benchmarks",
		Long: `pipeline runs image analysis requests through a retrying, circuit-breaking
batch processor while sampling host resources, raising threshold alerts and
recording benchmark results.

Configuration comes from an optional YAML file, PIPELINE_* environment
variables and the flags below, in increasing order of precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite file for alerts and benchmark results")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the monitoring API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a benchmark against the configured analyzer and write a report",
		RunE:  runBench,
	}
	benchCmd.Flags().StringVar(&benchName, "name", "cli", "Benchmark name")
	benchCmd.Flags().DurationVar(&benchDuration, "duration", 10*time.Second, "Measured duration")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 4, "Concurrent submitters")
	benchCmd.Flags().IntVar(&benchBatchSize, "batch-size", 10, "Requests per batch")
	benchCmd.Flags().DurationVar(&benchWarmup, "warmup", 0, "Warmup before measuring")
	benchCmd.Flags().DurationVar(&benchCooldown, "cooldown", 0, "Cooldown after measuring")
	benchCmd.Flags().StringVarP(&benchOutput, "output", "o", "report.json", "Report file name (.json or .yaml)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the requests listed in a CSV or JSON file",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "CSV or JSON request file, local path or http(s) URL")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "results.csv", "Result file name (.csv, .json or .yaml)")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "Override processing.max_batch_size")
	_ = analyzeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(serveCmd, benchCmd, analyzeCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup loads configuration with flag overrides and wires the application
func setup(cmd *cobra.Command) (*app.App, error) {
	v, err := config.New(configPath)
	if err != nil {
		return nil, err
	}
	bindFlag(v, cmd, "log.level", "log-level")
	bindFlag(v, cmd, "store.path", "store")
	bindFlag(v, cmd, "server.addr", "addr")

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, err := app.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// bindFlag lets an explicitly set flag override the file and environment
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Logger.Sync()
	defer a.Close()

	a.Logger.Info("Starting monitoring API", zap.String("addr", a.Config.Server.Addr), zap.String("version", version))
	return a.Serve(cmd.Context())
}

func runBench(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Logger.Sync()
	defer a.Close()

	ctx := cmd.Context()
	if err := a.Start(ctx); err != nil {
		return err
	}

	result, err := a.Benchmarks.Run(ctx, model.BenchmarkConfig{
		Name:        benchName,
		Duration:    model.Duration(benchDuration),
		Concurrency: benchConcurrency,
		BatchSize:   benchBatchSize,
		Warmup:      model.Duration(benchWarmup),
		Cooldown:    model.Duration(benchCooldown),
	})
	if err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	path, err := a.Output.WriteReport(result.ID, benchOutput, result)
	if err != nil {
		return err
	}
	size, err := a.Output.GetFileSize(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %.1f items/s, p95 %.1fms, error rate %.2f%%\nreport: %s (%d bytes)\n",
		result.Name, result.Throughput, result.Latency.P95, result.ErrorRate*100, path, size)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Logger.Sync()
	defer a.Close()

	ctx := cmd.Context()
	reqs, err := inference.LoadRequests(ctx, analyzeInput)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if analyzeBatchSize > 0 {
		opts = append(opts, pipeline.WithMaxBatchSize(analyzeBatchSize))
	}
	res, err := a.Inference.AnalyzeImages(ctx, reqs, opts...)
	if err != nil {
		return err
	}

	runID := strings.TrimSuffix(filepath.Base(analyzeInput), filepath.Ext(analyzeInput)) + "-" + time.Now().Format("20060102-150405")
	path, err := writeResults(a, runID, res)
	if err != nil {
		return err
	}

	size, err := a.Output.GetFileSize(path)
	if err != nil {
		return err
	}

	a.Logger.Info("Analysis complete",
		zap.Int("requests", len(reqs)),
		zap.Int("results", len(res.Results)),
		zap.Int("failed", len(res.Failed)),
		zap.String("output", path),
		zap.Int64("bytes", size),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%d analyzed, %d failed\nresults: %s (%d bytes)\n", len(res.Results), len(res.Failed), path, size)
	return nil
}

func writeResults(a *app.App, runID string, res *pipeline.BatchResult[model.AnalysisRequest, model.AnalysisResult]) (string, error) {
	if a.Output.GetFileType(analyzeOutput) != "csv" {
		return a.Output.WriteReport(runID, analyzeOutput, res)
	}

	f, path, err := a.Output.Create(runID, analyzeOutput)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := inference.WriteResultsCSV(f, res.Results); err != nil {
		return "", err
	}
	return path, nil
}
