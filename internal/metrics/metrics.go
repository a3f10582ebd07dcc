package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes per message.
const (
	OutcomeExisting   = "existing"
	OutcomeClassified = "classified"
	OutcomeDegraded   = "degraded"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnsaved    = "unsaved"
)

var (
	IngestedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_email_ingested_messages_total",
			Help: "Messages handled by the ingestion pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	SyncPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_email_sync_pages_total",
			Help: "Page synchronisations, by result",
		},
		[]string{"result"},
	)

	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smart_email_classify_duration_seconds",
			Help:    "Classification backend call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"backend", "status"},
	)

	ClassifyCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_email_classify_cache_total",
			Help: "Classification cache lookups, by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smart_email_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	MailboxFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smart_email_mailbox_fetch_duration_seconds",
			Help:    "Mailbox session duration (connect to logout) in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"status"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_email_token_refreshes_total",
			Help: "OAuth access token refreshes, by result",
		},
		[]string{"result"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_email_tool_calls_total",
			Help: "Tool dispatches, by tool and result",
		},
		[]string{"tool", "result"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordIngested(outcome string) {
	IngestedMessages.WithLabelValues(outcome).Inc()
}

func RecordSyncPage(err error) {
	SyncPages.WithLabelValues(status(err)).Inc()
}

func RecordClassify(backend string, err error, duration time.Duration) {
	ClassifyDuration.WithLabelValues(backend, status(err)).Observe(duration.Seconds())
}

func RecordCacheLookup(result string) {
	ClassifyCache.WithLabelValues(result).Inc()
}

func RecordBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordMailboxFetch(err error, duration time.Duration) {
	MailboxFetchDuration.WithLabelValues(status(err)).Observe(duration.Seconds())
}

func RecordTokenRefresh(err error) {
	TokenRefreshes.WithLabelValues(status(err)).Inc()
}

func RecordToolCall(tool string, err error) {
	ToolCalls.WithLabelValues(tool, status(err)).Inc()
}
