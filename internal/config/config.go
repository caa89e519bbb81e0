package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-inference-pipeline/internal/alerting"
	"go-inference-pipeline/internal/inference"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/monitor"
	"go-inference-pipeline/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. PIPELINE_SERVER_ADDR
const EnvPrefix = "PIPELINE"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Validation ValidationConfig `mapstructure:"validation"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Benchmark  BenchmarkConfig  `mapstructure:"benchmark"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig points at the SQLite file; an empty path disables persistence
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	HistorySize int           `mapstructure:"history_size"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type ProcessingConfig struct {
	Concurrency        int                  `mapstructure:"concurrency"`
	MaxBatchSize       int                  `mapstructure:"max_batch_size"`
	RetryAttempts      int                  `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration        `mapstructure:"retry_delay"`
	ExponentialBackoff bool                 `mapstructure:"exponential_backoff"`
	MaxRetryDelay      time.Duration        `mapstructure:"max_retry_delay"`
	CircuitBreaker     CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type ValidationConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	MinProcessingTime   time.Duration `mapstructure:"min_processing_time"`
	MaxProcessingTime   time.Duration `mapstructure:"max_processing_time"`
}

type AlertsConfig struct {
	MaxHistory int `mapstructure:"max_history"`
}

type InferenceConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	ModelVersion         string        `mapstructure:"model_version"`
	SimulatedLatency     time.Duration `mapstructure:"simulated_latency"`
	SimulatedFailureRate float64       `mapstructure:"simulated_failure_rate"`
}

type BenchmarkConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.path", "pipeline.db")
	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.history_size", 720)
	v.SetDefault("processing.concurrency", 0)
	v.SetDefault("processing.max_batch_size", 10)
	v.SetDefault("processing.retry_attempts", 3)
	v.SetDefault("processing.retry_delay", time.Second)
	v.SetDefault("processing.exponential_backoff", true)
	v.SetDefault("processing.max_retry_delay", 10*time.Second)
	v.SetDefault("processing.circuit_breaker.failure_threshold", 5)
	v.SetDefault("processing.circuit_breaker.reset_timeout", time.Minute)
	v.SetDefault("validation.confidence_threshold", 0.7)
	v.SetDefault("validation.min_processing_time", 10*time.Millisecond)
	v.SetDefault("validation.max_processing_time", 30*time.Second)
	v.SetDefault("alerts.max_history", alerting.DefaultMaxHistory)
	v.SetDefault("inference.timeout", 30*time.Second)
	v.SetDefault("inference.model_version", "1.0.0")
	v.SetDefault("inference.simulated_latency", 150*time.Millisecond)
	v.SetDefault("inference.simulated_failure_rate", 0.0)
	v.SetDefault("benchmark.output_dir", "benchmarks")
}

// New returns a viper instance with defaults, PIPELINE_* env overrides and
// the optional YAML file at configFile.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the components cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Monitor.Interval <= 0 {
		problems = append(problems, "monitor.interval must be positive")
	}
	if c.Monitor.HistorySize <= 0 {
		problems = append(problems, "monitor.history_size must be positive")
	}
	if c.Validation.ConfidenceThreshold < 0 || c.Validation.ConfidenceThreshold > 1 {
		problems = append(problems, "validation.confidence_threshold must be within [0, 1]")
	}
	if c.Validation.MinProcessingTime > c.Validation.MaxProcessingTime {
		problems = append(problems, "validation.min_processing_time exceeds max_processing_time")
	}
	if c.Inference.SimulatedFailureRate < 0 || c.Inference.SimulatedFailureRate > 1 {
		problems = append(problems, "inference.simulated_failure_rate must be within [0, 1]")
	}
	if c.Inference.Timeout <= 0 {
		problems = append(problems, "inference.timeout must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	if err := pipeline.ValidateOptions(c.ProcessingOptions()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ProcessingOptions converts the processing section into batch defaults
func (c *Config) ProcessingOptions() model.ProcessingOptions {
	p := c.Processing
	return model.ProcessingOptions{
		Concurrency:        p.Concurrency,
		MaxBatchSize:       p.MaxBatchSize,
		RetryAttempts:      p.RetryAttempts,
		RetryDelay:         model.Duration(p.RetryDelay),
		ExponentialBackoff: p.ExponentialBackoff,
		MaxRetryDelay:      model.Duration(p.MaxRetryDelay),
		CircuitBreaker: model.CircuitBreakerOptions{
			FailureThreshold: p.CircuitBreaker.FailureThreshold,
			ResetTimeout:     model.Duration(p.CircuitBreaker.ResetTimeout),
		},
	}
}

// PipelineConfig returns the BatchProcessor configuration
func (c *Config) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Defaults = c.ProcessingOptions()
	cfg.Validation.ConfidenceThreshold = c.Validation.ConfidenceThreshold
	cfg.Validation.MinProcessingTime = c.Validation.MinProcessingTime
	cfg.Validation.MaxProcessingTime = c.Validation.MaxProcessingTime
	return cfg
}

func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{Interval: c.Monitor.Interval, HistorySize: c.Monitor.HistorySize}
}

func (c *Config) AlertingConfig() alerting.Config {
	cfg := alerting.DefaultConfig()
	cfg.MaxHistory = c.Alerts.MaxHistory
	return cfg
}

func (c *Config) InferenceConfig() inference.Config {
	return inference.Config{Timeout: c.Inference.Timeout, ModelVersion: c.Inference.ModelVersion}
}

func (c *Config) SimulatedConfig() inference.SimulatedConfig {
	return inference.SimulatedConfig{
		Latency:      c.Inference.SimulatedLatency,
		FailureRate:  c.Inference.SimulatedFailureRate,
		ModelVersion: c.Inference.ModelVersion,
	}
}
