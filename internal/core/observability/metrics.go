package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	dbQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Latency of backing store queries in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"driver", "result"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_results_total",
			Help: "Response cache lookups by outcome.",
		},
		[]string{"outcome", "tag"},
	)

	cacheOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Latency of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"backend", "op", "result"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidation_events_total",
			Help: "Invalidation events processed by table and outcome.",
		},
		[]string{"table", "outcome"},
	)

	invalidatedEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_invalidated_entries_total",
			Help: "Cached responses purged by invalidation.",
		},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	facetFetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "facet_fetch_duration_seconds",
			Help:    "Latency of facet value and candidate fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"kind", "result"},
	)
)

// Collectors lists every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		dbQueryDurationSeconds,
		cacheResults,
		cacheOpDurationSeconds,
		invalidationsTotal,
		invalidatedEntriesTotal,
		kafkaConsumerErrors,
		facetFetchDurationSeconds,
	}
}

// Init registers the collectors with reg. Registering twice into the same
// registry is a no-op.
func Init(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if route == "" {
		route = "unmatched"
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveDBQuery(driver string, err error, durationSeconds float64) {
	dbQueryDurationSeconds.WithLabelValues(driver, result(err)).Observe(durationSeconds)
}

func IncCacheHit(tag string)  { cacheResults.WithLabelValues("hit", tag).Inc() }
func IncCacheMiss(tag string) { cacheResults.WithLabelValues("miss", tag).Inc() }

func ObserveCacheOp(backend, op string, err error, durationSeconds float64) {
	cacheOpDurationSeconds.WithLabelValues(backend, op, result(err)).Observe(durationSeconds)
}

// IncInvalidation counts one event; outcome is applied, duplicate or rejected.
func IncInvalidation(table, outcome string, purged int) {
	invalidationsTotal.WithLabelValues(table, outcome).Inc()
	if purged > 0 {
		invalidatedEntriesTotal.Add(float64(purged))
	}
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}

func ObserveFacetFetch(kind string, err error, durationSeconds float64) {
	facetFetchDurationSeconds.WithLabelValues(kind, result(err)).Observe(durationSeconds)
}
