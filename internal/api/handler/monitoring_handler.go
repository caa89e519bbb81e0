package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-inference-pipeline/internal/alerting"
	"go-inference-pipeline/internal/benchmark"
	"go-inference-pipeline/internal/inference"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/monitor"
	"go-inference-pipeline/internal/pipeline"
	"go-inference-pipeline/pkg/router"
	"go-inference-pipeline/pkg/utils"
)

// SystemMonitor is the monitor surface the handlers read
type SystemMonitor interface {
	Health() model.SystemHealth
	History(window time.Duration) []model.SystemMetrics
	Config() monitor.Config
}

// Processor is the batch processor surface the handlers read
type Processor interface {
	Stats() model.ProcessingStats
	Errors() model.ErrorSummary
	Config() pipeline.ProcessorConfig
	CircuitState() model.CircuitBreakerState
	ResetCircuit()
}

// InferenceService is the inference surface the handlers read
type InferenceService interface {
	Config() inference.Config
	Metrics() model.AIMetricsSnapshot
}

// AlertEngine is the alerting surface the handlers use
type AlertEngine interface {
	GetAlerts(filter model.AlertFilter) []model.Alert
	AcknowledgeAlert(id, who string) (model.Alert, error)
	Rules() []model.AlertRule
}

// BenchmarkRunner is the benchmark surface the handlers use
type BenchmarkRunner interface {
	Run(ctx context.Context, cfg model.BenchmarkConfig) (model.BenchmarkResult, error)
	Status() benchmark.Phase
	List(limit int) []model.BenchmarkResult
	Get(id string) (model.BenchmarkResult, error)
	Latest() (model.BenchmarkResult, error)
	Compare(baselineID, candidateID string) (model.BenchmarkComparison, error)
}

// MonitoringHandler serves the monitoring API
type MonitoringHandler struct {
	Monitor    SystemMonitor
	Processor  Processor
	Inference  InferenceService
	Alerts     AlertEngine
	Benchmarks BenchmarkRunner
	Logger     *zap.Logger
}

// ConfigResponse is the merged configuration of the running components
type ConfigResponse struct {
	Inference  inference.Config         `json:"inference"`
	Processing pipeline.ProcessorConfig `json:"processing"`
	Monitor    monitor.Config           `json:"monitor"`
}

// MetricsHistoryResponse wraps a metrics history window
type MetricsHistoryResponse struct {
	Metrics []model.SystemMetrics `json:"metrics"`
	Count   int                   `json:"count"`
}

// AcknowledgeRequest is the body of an acknowledgement
type AcknowledgeRequest struct {
	UserID string `json:"userId"`
}

// BenchmarkStatusResponse reports the runner phase
type BenchmarkStatusResponse struct {
	Status benchmark.Phase `json:"status"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetHealth returns the system health verdict
// @Summary System health
// @Description Health verdict derived from the latest resource snapshot
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.SystemHealth
// @Router /monitoring/health [get]
func (h *MonitoringHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Monitor.Health())
}

// GetMetrics returns the resource history, optionally windowed
// @Summary Resource metrics history
// @Description Snapshots collected by the system monitor; duration limits the window (Go duration or milliseconds)
// @Tags monitoring
// @Produce json
// @Param duration query string false "Window, e.g. 5m or 300000"
// @Success 200 {object} MetricsHistoryResponse
// @Failure 400 {object} ErrorResponse
// @Router /monitoring/metrics [get]
func (h *MonitoringHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	window, err := utils.ParseDuration(r.URL.Query().Get("duration"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	history := h.Monitor.History(window)
	writeJSON(w, http.StatusOK, MetricsHistoryResponse{Metrics: history, Count: len(history)})
}

// GetPerformance returns the cumulative processing statistics
// @Summary Processing statistics
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.ProcessingStats
// @Router /monitoring/performance [get]
func (h *MonitoringHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Processor.Stats())
}

// GetErrors returns the aggregated error histogram
// @Summary Error summary
// @Description Total, unique, frequent (at least 5 occurrences) and the 10 most recent errors
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.ErrorSummary
// @Router /monitoring/errors [get]
func (h *MonitoringHandler) GetErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Processor.Errors())
}

// GetConfig returns the merged component configuration
// @Summary Current configuration
// @Tags monitoring
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /monitoring/config [get]
func (h *MonitoringHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		Inference:  h.Inference.Config(),
		Processing: h.Processor.Config(),
		Monitor:    h.Monitor.Config(),
	})
}

// GetCircuit returns the circuit breaker state
// @Summary Circuit breaker state
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.CircuitBreakerState
// @Router /monitoring/circuit [get]
func (h *MonitoringHandler) GetCircuit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Processor.CircuitState())
}

// ResetCircuit force-closes the circuit breaker
// @Summary Reset the circuit breaker
// @Description Force-closes the batch processor's circuit breaker and clears its failure count
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.CircuitBreakerState
// @Router /monitoring/circuit/reset [post]
func (h *MonitoringHandler) ResetCircuit(w http.ResponseWriter, r *http.Request) {
	h.Processor.ResetCircuit()
	if h.Logger != nil {
		h.Logger.Info("Circuit breaker reset by operator")
	}
	writeJSON(w, http.StatusOK, h.Processor.CircuitState())
}

// GetAIMetrics returns the inference layer counters
// @Summary Inference metrics
// @Tags monitoring
// @Produce json
// @Success 200 {object} model.AIMetricsSnapshot
// @Router /monitoring/ai [get]
func (h *MonitoringHandler) GetAIMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Inference.Metrics())
}

// ListAlerts returns alerts newest first
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param type query string false "Severity (info, warning, error, critical)"
// @Param source query string false "Source (system, ai, processing)"
// @Param acknowledged query bool false "Acknowledgement state"
// @Param limit query int false "Maximum number of alerts"
// @Param since query string false "RFC 3339 time or unix milliseconds"
// @Success 200 {array} model.Alert
// @Failure 400 {object} ErrorResponse
// @Router /monitoring/alerts [get]
func (h *MonitoringHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AlertFilter{
		Severity: model.AlertSeverity(q.Get("type")),
		Source:   model.AlertSource(q.Get("source")),
	}

	var err error
	if filter.Acknowledged, err = utils.QueryBool(r, "acknowledged"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Since, err = utils.QueryTime(r, "since"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Alerts.GetAlerts(filter))
}

// AcknowledgeAlert marks an alert as handled
// @Summary Acknowledge an alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param body body AcknowledgeRequest true "Acknowledger"
// @Success 200 {object} model.Alert
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /monitoring/alerts/{id}/acknowledge [post]
func (h *MonitoringHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := router.PathParam(r, 2)

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON payload"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}

	alert, err := h.Alerts.AcknowledgeAlert(id, req.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// ListAlertRules returns the rule table
// @Summary List alert rules
// @Tags alerts
// @Produce json
// @Success 200 {array} model.AlertRule
// @Router /monitoring/alerts/rules [get]
func (h *MonitoringHandler) ListAlertRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Alerts.Rules())
}

// RunBenchmark runs a benchmark synchronously
// @Summary Run a benchmark
// @Description Blocks for warmup + duration + cooldown and returns the stored result. Durations are milliseconds.
// @Tags benchmarks
// @Accept json
// @Produce json
// @Param config body model.BenchmarkConfig true "Benchmark configuration"
// @Success 200 {object} model.BenchmarkResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /monitoring/benchmark [post]
func (h *MonitoringHandler) RunBenchmark(w http.ResponseWriter, r *http.Request) {
	var cfg model.BenchmarkConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON payload"))
		return
	}

	result, err := h.Benchmarks.Run(r.Context(), cfg)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetBenchmarkStatus returns the runner phase
// @Summary Benchmark runner status
// @Tags benchmarks
// @Produce json
// @Success 200 {object} BenchmarkStatusResponse
// @Router /monitoring/benchmark/status [get]
func (h *MonitoringHandler) GetBenchmarkStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BenchmarkStatusResponse{Status: h.Benchmarks.Status()})
}

// ListBenchmarks returns stored results newest first
// @Summary List benchmark results
// @Tags benchmarks
// @Produce json
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} model.BenchmarkResult
// @Failure 400 {object} ErrorResponse
// @Router /monitoring/benchmarks [get]
func (h *MonitoringHandler) ListBenchmarks(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Benchmarks.List(limit))
}

// GetLatestBenchmark returns the most recent result
// @Summary Latest benchmark result
// @Tags benchmarks
// @Produce json
// @Success 200 {object} model.BenchmarkResult
// @Failure 404 {object} ErrorResponse
// @Router /monitoring/benchmarks/latest [get]
func (h *MonitoringHandler) GetLatestBenchmark(w http.ResponseWriter, r *http.Request) {
	result, err := h.Benchmarks.Latest()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompareBenchmarks returns id2 minus id1 for every numeric field
// @Summary Compare two benchmark results
// @Tags benchmarks
// @Produce json
// @Param id1 query string true "Baseline result ID"
// @Param id2 query string true "Candidate result ID"
// @Success 200 {object} model.BenchmarkComparison
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /monitoring/benchmarks/compare [get]
func (h *MonitoringHandler) CompareBenchmarks(w http.ResponseWriter, r *http.Request) {
	id1, id2 := r.URL.Query().Get("id1"), r.URL.Query().Get("id2")
	if id1 == "" || id2 == "" {
		writeError(w, http.StatusBadRequest, errors.New("id1 and id2 are required"))
		return
	}
	cmp, err := h.Benchmarks.Compare(id1, id2)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// GetBenchmark returns one result
// @Summary Get a benchmark result
// @Tags benchmarks
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} model.BenchmarkResult
// @Failure 404 {object} ErrorResponse
// @Router /monitoring/benchmarks/{id} [get]
func (h *MonitoringHandler) GetBenchmark(w http.ResponseWriter, r *http.Request) {
	result, err := h.Benchmarks.Get(router.PathParam(r, 2))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fail maps a component error onto its HTTP status
func (h *MonitoringHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerting.ErrAlertNotFound), errors.Is(err, benchmark.ErrResultNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, benchmark.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, benchmark.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err)
	default:
		if h.Logger != nil {
			h.Logger.Error("Request failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
