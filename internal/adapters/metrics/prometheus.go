package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amaru_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amaru_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// EvaluationsTotal counts candidate evaluations by outcome:
	// "evaluated", "cached" or "hard_failed".
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amaru_evaluations_total",
		Help: "Total candidate evaluations",
	}, []string{"outcome"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "amaru_evaluation_duration_seconds",
		Help:    "Duration of uncached candidate evaluations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 120},
	})

	TransientRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amaru_transient_retries_total",
		Help: "Executor calls repeated because of a transient fault",
	})

	TestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amaru_test_failures_total",
		Help: "Failed test executions by failure kind",
	}, []string{"kind"})

	CacheStoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amaru_cache_store_errors_total",
		Help: "Fitness store errors treated as cache misses",
	})

	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amaru_generations_total",
		Help: "Generations evolved per strategy",
	}, []string{"strategy"})

	GenerationStepErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amaru_generation_step_errors_total",
		Help: "Generation steps that failed and were skipped",
	}, []string{"strategy"})

	BestQuality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "amaru_best_quality",
		Help: "Best quality of the last finished round",
	}, []string{"strategy"})

	ExecutorCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amaru_executor_circuit_state",
		Help: "Remote executor circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
)
