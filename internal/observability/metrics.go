package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RecipeWrites counts committed recipe mutations by action (create, update, delete).
	RecipeWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_recipe_writes_total",
		Help: "Total number of committed recipe writes",
	}, []string{"action"})

	// RecipeWriteFailures counts rejected or rolled back recipe writes by error code.
	RecipeWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_recipe_write_failures_total",
		Help: "Total number of failed recipe writes",
	}, []string{"action", "code"})

	// MembershipToggles counts favorite and cart toggles.
	MembershipToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_membership_toggles_total",
		Help: "Total number of favorite/shopping cart toggles",
	}, []string{"list", "action"})

	// FollowToggles counts subscribe and unsubscribe actions.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_follow_toggles_total",
		Help: "Total number of subscribe/unsubscribe actions",
	}, []string{"action"})

	// ShoppingListExports counts generated shopping list documents.
	ShoppingListExports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_shopping_list_exports_total",
		Help: "Total number of shopping list documents generated",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foodgram_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

