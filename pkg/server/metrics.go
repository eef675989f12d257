package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "retail_dashboard"

// Metrics regroupe les métriques Prometheus exposées sur /metrics.
type Metrics struct {
	// HTTP
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	ForecastFailures prometheus.Counter
	FilteredRows     prometheus.Histogram

	// Données
	DatasetLoadErrors prometheus.Counter
}

// NewMetrics enregistre les métriques dans reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "method", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of dashboard computations by outcome",
		}, []string{"outcome"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of a full dashboard computation",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ForecastFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "forecast_failures_total",
			Help:      "Forecasts that could not be fitted on a non-empty selection",
		}),
		FilteredRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "filtered_rows",
			Help:      "Transactions kept by the filter per computation",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),

		DatasetLoadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "load_errors_total",
			Help:      "Requests answered with an error because the dataset could not be loaded",
		}),
	}
}
