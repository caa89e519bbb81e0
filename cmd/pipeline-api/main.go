package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/app"
	"go-inference-pipeline/internal/config"
)

// pipeline-api serves the monitoring API using only the config file named by
// PIPELINE_CONFIG and PIPELINE_* overrides.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	v, err := config.New(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting monitoring API", zap.String("addr", cfg.Server.Addr))
	return a.Serve(ctx)
}
