// Package metrics holds the Prometheus collectors for the query pipeline.
package metrics

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nl2sql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nl2sql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nl2sql_pipeline_outcomes_total",
			Help: "Questions handled by the pipeline, by outcome kind.",
		},
		[]string{"outcome"},
	)

	llmLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_llm_latency_ms",
			Help:    "SQL generation latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000, 30000},
		},
	)

	queryLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_query_latency_ms",
			Help:    "Read-only query execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	rowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_rows_returned",
			Help:    "Rows returned per successful question.",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
	)

	unsafeSQLTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nl2sql_unsafe_sql_total",
			Help: "Generated statements rejected by the safety validator.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		pipelineOutcomesTotal,
		llmLatencyMs,
		queryLatencyMs,
		rowsReturned,
		unsafeSQLTotal,
	)
}

func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// ObserveOutcome counts a finished question; outcome is "ok" or an error kind
func ObserveOutcome(outcome string) {
	pipelineOutcomesTotal.WithLabelValues(outcome).Inc()
}

func ObserveLLMLatency(elapsed time.Duration) {
	llmLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveQuery(elapsed time.Duration, rows int) {
	queryLatencyMs.Observe(float64(elapsed.Milliseconds()))
	rowsReturned.Observe(float64(rows))
}

func IncrementUnsafeSQL() {
	unsafeSQLTotal.Inc()
}

// RegisterPoolStats exports connection pool accounting. Calling it again is a no-op.
func RegisterPoolStats(stat func() *pgxpool.Stat) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "nl2sql_db_pool_total_conns",
			Help: "Connections currently held by the pool.",
		}, func() float64 { return float64(stat().TotalConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "nl2sql_db_pool_acquired_conns",
			Help: "Connections currently checked out.",
		}, func() float64 { return float64(stat().AcquiredConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "nl2sql_db_pool_idle_conns",
			Help: "Idle connections in the pool.",
		}, func() float64 { return float64(stat().IdleConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "nl2sql_db_pool_max_conns",
			Help: "Pool size ceiling.",
		}, func() float64 { return float64(stat().MaxConns()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "nl2sql_db_pool_empty_acquire_total",
			Help: "Acquires that waited because the pool was empty.",
		}, func() float64 { return float64(stat().EmptyAcquireCount()) }),
	}
	for _, g := range gauges {
		if err := prometheus.Register(g); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
