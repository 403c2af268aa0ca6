package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readcheck_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	summarizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "readcheck_summarize_duration_seconds",
		Help:    "Duration of Anthropic summarize calls.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	articlesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readcheck_articles_saved_total",
		Help: "Articles successfully fetched, summarized and stored.",
	})
)

// CountRequest records one handled HTTP request.
func CountRequest(method, route, status string) {
	httpRequests.WithLabelValues(method, route, status).Inc()
}

// ObserveSummarizeDuration records the latency of one summarize call.
func ObserveSummarizeDuration(d time.Duration) {
	summarizeDuration.Observe(d.Seconds())
}

// CountArticleSaved records one successfully saved article.
func CountArticleSaved() {
	articlesSaved.Inc()
}
