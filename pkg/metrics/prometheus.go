package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus collectors for the forecast service.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	windowsEvaluated *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrecision    *prometheus.GaugeVec
	lastProbability  *prometheus.GaugeVec
	historyBars      *prometheus.GaugeVec
	cacheLookups     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Recorder backed by its own registry, with Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexcast_pipeline_runs_total",
				Help: "Total number of forecast pipeline runs by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexcast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		windowsEvaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexcast_windows_evaluated_total",
				Help: "Total number of walk-forward windows fitted and evaluated",
			},
			[]string{"symbol"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexcast_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind"},
		),
		lastPrecision: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexcast_backtest_precision",
				Help: "Backtest precision of the last run (NaN when undefined)",
			},
			[]string{"symbol"},
		),
		lastProbability: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexcast_tomorrow_probability",
				Help: "Classifier probability of an up move for the next session",
			},
			[]string{"symbol"},
		),
		historyBars: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexcast_history_bars",
				Help: "Number of daily bars used by the last run",
			},
			[]string{"symbol"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexcast_cache_lookups_total",
				Help: "Report cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexcast_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexcast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}
}

// Registry exposes the underlying registry (tests, custom collectors).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns the /metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRun records a finished pipeline run.
func (r *Recorder) RecordRun(symbol string, ok bool) {
	if r == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	r.pipelineRuns.WithLabelValues(symbol, outcome).Inc()
}

// RecordStage records the latency of a pipeline stage in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.pipelineDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordWindows adds n evaluated walk-forward windows.
func (r *Recorder) RecordWindows(symbol string, n int) {
	if r == nil {
		return
	}
	r.windowsEvaluated.WithLabelValues(symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordReport records the headline numbers of a report.
func (r *Recorder) RecordReport(symbol string, precision float64, probability float64, bars int) {
	if r == nil {
		return
	}
	r.lastPrecision.WithLabelValues(symbol).Set(precision)
	r.lastProbability.WithLabelValues(symbol).Set(probability)
	r.historyBars.WithLabelValues(symbol).Set(float64(bars))
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTP records a served HTTP request.
func (r *Recorder) RecordHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
