// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_queries_processed_total",
			Help: "Total number of conversational queries processed, by intent kind",
		},
		[]string{"intent"},
	)

	IntentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intent_outcomes_total",
			Help: "Intent gateway outcomes (ok, busy, fallback)",
		},
		[]string{"outcome"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_retrieval_duration_seconds",
			Help: "Duration of catalog retrieval, by search path",
		},
		[]string{"path"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_requests_total",
			Help: "Cache lookups by backend and result (hit, miss, error)",
		},
		[]string{"backend", "result"},
	)

	MemoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_memory_write_failures_total",
			Help: "Conversation memory appends that failed and were dropped",
		},
	)
)
