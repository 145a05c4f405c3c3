package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayCalls counts gateway operations by name and result code ("ok" on success).
	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_gateway_calls_total",
		Help: "Total number of platform gateway calls by operation and result",
	}, []string{"operation", "result"})

	// GatewayLatency records gateway operation latency.
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_gateway_latency_seconds",
		Help:    "Platform gateway call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// CompensationOutcomes counts compensating file cleanups by outcome
	// ("cleaned", "orphaned").
	CompensationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_compensation_outcomes_total",
		Help: "Outcomes of compensating cleanup after failed multi-step writes",
	}, []string{"operation", "outcome"})

	// QueryCacheEvents counts query cache lookups by event ("hit", "miss", "shared", "invalidated").
	QueryCacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_query_cache_events_total",
		Help: "Query cache events by entity and type",
	}, []string{"entity", "event"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// EventPublishFailures counts mutation events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_event_publish_failures_total",
		Help: "Mutation events dropped because the broker rejected them",
	}, []string{"type"})
)

// TrackGatewayCall returns a function that records latency and the result of a
// gateway operation. Call it with the operation's error (nil on success).
func TrackGatewayCall(operation string) func(result string) {
	start := time.Now()
	return func(result string) {
		GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		GatewayCalls.WithLabelValues(operation, result).Inc()
	}
}
