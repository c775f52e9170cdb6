// Package metrics provides Prometheus metrics for the overlay broadcast service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the overlay service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Bus Metrics - broadcast fan-out health
	broadcastsPublished *prometheus.CounterVec
	broadcastsDropped   prometheus.Counter
	transportsOpen      prometheus.Gauge
	handlersRegistered  prometheus.Gauge

	// Subscribe Protocol Metrics
	subscribeRequests prometheus.Counter
	subscribeInvalid  prometheus.Counter
	relevanceAccepted prometheus.Counter
	relevanceRejected prometheus.Counter

	// Ranking Metrics
	rankComputeLatency prometheus.Histogram
	playersRanked      prometheus.Gauge

	// Aggregator Metrics
	scopesTracked   prometheus.Gauge
	republishes     prometheus.Counter
	errorBroadcasts prometheus.Counter

	// Upstream Metrics
	upstreamFetches      *prometheus.CounterVec
	upstreamFetchLatency prometheus.Histogram
	feedReconnects       prometheus.Counter
	feedNotifications    *prometheus.CounterVec

	// HTTP Surface Metrics
	sseClients          prometheus.Gauge
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lps",
		subsystem:        "overlay",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.broadcastsPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "broadcasts_published_total",
			Help:      "Total number of messages published on the broadcast bus by kind",
		},
		[]string{"kind"},
	)

	m.broadcastsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_dropped_total",
		Help:      "Total number of messages dropped for slow or closed transports",
	})

	m.transportsOpen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transports_open",
		Help:      "Current number of open broadcast transports",
	})

	m.handlersRegistered = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "handlers_registered",
		Help:      "Current number of registered message handlers across registries",
	})

	m.subscribeRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribe_requests_total",
		Help:      "Total number of subscribe requests received by the aggregator",
	})

	m.subscribeInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribe_invalid_total",
		Help:      "Total number of malformed subscribe requests ignored",
	})

	m.relevanceAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "relevance_accepted_total",
		Help:      "Total number of broadcasts accepted by consumer relevance filters",
	})

	m.relevanceRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "relevance_rejected_total",
		Help:      "Total number of broadcasts rejected by consumer relevance filters",
	})

	m.rankComputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_compute_latency_milliseconds",
		Help:      "Histogram of ranked stats computation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.playersRanked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_ranked",
		Help:      "Number of players in the most recent ranking computation",
	})

	m.scopesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scopes_tracked",
		Help:      "Current number of subscription scopes tracked by the aggregator",
	})

	m.republishes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "republishes_total",
		Help:      "Total number of proactive republishes triggered by upstream changes",
	})

	m.errorBroadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "error_broadcasts_total",
		Help:      "Total number of tournament data error broadcasts published",
	})

	m.upstreamFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_fetches_total",
			Help:      "Total number of upstream API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.upstreamFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_fetch_latency_milliseconds",
		Help:      "Histogram of upstream API call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.feedReconnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_reconnects_total",
		Help:      "Total number of live notification feed reconnect attempts",
	})

	m.feedNotifications = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "feed_notifications_total",
			Help:      "Total number of live notifications received by kind",
		},
		[]string{"kind"},
	)

	m.sseClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sse_clients",
		Help:      "Current number of connected SSE overlay surfaces",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordBroadcastPublished increments the published counter for a message kind.
func RecordBroadcastPublished(kind string) {
	globalManager.broadcastsPublished.WithLabelValues(kind).Inc()
}

// RecordBroadcastDropped increments the dropped broadcast counter.
func RecordBroadcastDropped() {
	globalManager.broadcastsDropped.Inc()
}

// UpdateTransportsOpen sets the open transport gauge.
func UpdateTransportsOpen(n int) {
	globalManager.transportsOpen.Set(float64(n))
}

// IncHandlersRegistered increments the registered handler gauge.
func IncHandlersRegistered() {
	globalManager.handlersRegistered.Inc()
}

// DecHandlersRegistered decrements the registered handler gauge.
func DecHandlersRegistered() {
	globalManager.handlersRegistered.Dec()
}

// RecordSubscribeRequest increments the subscribe request counter.
func RecordSubscribeRequest() {
	globalManager.subscribeRequests.Inc()
}

// RecordInvalidSubscribe increments the malformed subscribe counter.
func RecordInvalidSubscribe() {
	globalManager.subscribeInvalid.Inc()
}

// RecordRelevanceAccepted increments the accepted broadcast counter.
func RecordRelevanceAccepted() {
	globalManager.relevanceAccepted.Inc()
}

// RecordRelevanceRejected increments the rejected broadcast counter.
func RecordRelevanceRejected() {
	globalManager.relevanceRejected.Inc()
}

// RecordRankComputeLatency records a ranking computation latency sample.
func RecordRankComputeLatency(latencyMs float64) {
	globalManager.rankComputeLatency.Observe(latencyMs)
}

// UpdatePlayersRanked sets the players ranked gauge.
func UpdatePlayersRanked(n int) {
	globalManager.playersRanked.Set(float64(n))
}

// UpdateScopesTracked sets the tracked scope gauge.
func UpdateScopesTracked(n int) {
	globalManager.scopesTracked.Set(float64(n))
}

// RecordRepublish increments the proactive republish counter.
func RecordRepublish() {
	globalManager.republishes.Inc()
}

// RecordErrorBroadcast increments the error broadcast counter.
func RecordErrorBroadcast() {
	globalManager.errorBroadcasts.Inc()
}

// RecordUpstreamFetch increments the upstream fetch counter.
func RecordUpstreamFetch(operation, outcome string) {
	globalManager.upstreamFetches.WithLabelValues(operation, outcome).Inc()
}

// RecordUpstreamFetchLatency records an upstream call latency sample.
func RecordUpstreamFetchLatency(latencyMs float64) {
	globalManager.upstreamFetchLatency.Observe(latencyMs)
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	globalManager.feedReconnects.Inc()
}

// RecordFeedNotification increments the notification counter for a kind.
func RecordFeedNotification(kind string) {
	globalManager.feedNotifications.WithLabelValues(kind).Inc()
}

// IncSSEClients increments the connected SSE client gauge.
func IncSSEClients() {
	globalManager.sseClients.Inc()
}

// DecSSEClients decrements the connected SSE client gauge.
func DecSSEClients() {
	globalManager.sseClients.Dec()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration sample.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
