// Package metrics exposes Prometheus counters for the harvester.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TotalRequests tracks the number of article HTTP requests dispatched.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_requests_total",
		Help: "The total number of article HTTP requests sent.",
	})
	// TotalRequestErrors tracks requests that resulted in a transport error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_request_errors_total",
		Help: "The total number of failed article HTTP requests.",
	})
	// TotalRateLimitHits tracks HTTP 429 responses.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_rate_limit_hits_total",
		Help: "The total number of times the fetcher was rate limited.",
	})
	// TotalForbiddenHits tracks HTTP 403 responses.
	TotalForbiddenHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_forbidden_hits_total",
		Help: "The total number of forbidden responses received.",
	})
	// TotalBlockPages tracks HTTP 200 responses recognized as block pages.
	TotalBlockPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_block_pages_total",
		Help: "The total number of responses recognized as anti-bot block pages.",
	})
	// TotalEscalations tracks hybrid-mode escalations to the renderer.
	TotalEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_render_escalations_total",
		Help: "The total number of fetches escalated to the rendering fetcher.",
	})
	// TotalArticlesSaved tracks rows newly inserted into the article store.
	TotalArticlesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_articles_saved_total",
		Help: "The total number of articles newly persisted.",
	})
	// TotalDuplicates tracks inserts suppressed by the unique URL constraint.
	TotalDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_duplicate_articles_total",
		Help: "The total number of duplicate article inserts skipped.",
	})
)

// Serve exposes /metrics on addr. It returns the server so the caller can
// shut it down; errors from a dead listener surface via the returned channel.
func Serve(addr string) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	return srv, errCh
}
