package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-inference-pipeline/docs"
	"go-inference-pipeline/internal/api/handler"
	"go-inference-pipeline/pkg/router"
)

// RegisterRoutes wires the monitoring API, Prometheus metrics and the swagger UI
func RegisterRoutes(r *router.Router, h *handler.MonitoringHandler, gatherer prometheus.Gatherer) {
	r.GET("/monitoring/health", h.GetHealth)
	r.GET("/monitoring/metrics", h.GetMetrics)
	r.GET("/monitoring/performance", h.GetPerformance)
	r.GET("/monitoring/errors", h.GetErrors)
	r.GET("/monitoring/config", h.GetConfig)
	r.GET("/monitoring/ai", h.GetAIMetrics)
	r.GET("/monitoring/circuit", h.GetCircuit)
	r.POST("/monitoring/circuit/reset", h.ResetCircuit)

	r.GET("/monitoring/alerts", h.ListAlerts)
	r.GET("/monitoring/alerts/rules", h.ListAlertRules)
	r.POST("/monitoring/alerts/*/acknowledge", h.AcknowledgeAlert)

	r.POST("/monitoring/benchmark", h.RunBenchmark)
	r.GET("/monitoring/benchmark/status", h.GetBenchmarkStatus)
	r.GET("/monitoring/benchmarks", h.ListBenchmarks)
	// More specific routes first
	r.GET("/monitoring/benchmarks/latest", h.GetLatestBenchmark)
	r.GET("/monitoring/benchmarks/compare", h.CompareBenchmarks)
	r.GET("/monitoring/benchmarks/*", h.GetBenchmark)

	if gatherer != nil {
		r.Mount("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
