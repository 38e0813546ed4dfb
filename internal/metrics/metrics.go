// Package metrics exposes Prometheus collectors for the status API and the
// correspondence matcher. Crawl-side collectors live in the progress
// Prometheus sink; the names here do not overlap with them.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rriarchive/harvester/internal/match"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	matchSearchesTotal         *prometheus.CounterVec
	matchCorrespondencesTotal  prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		matchSearchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_match_searches_total",
				Help: "Total correspondence containment searches, labeled by result.",
			},
			[]string{"result"},
		)

		matchCorrespondencesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_match_correspondences_total",
				Help: "Total correspondence records emitted by matching runs.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveMatchSearch increments the search counter for one search outcome.
func ObserveMatchSearch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	matchSearchesTotal.WithLabelValues(result).Inc()
}

// ObserveCorrespondences adds emitted correspondence records to the total.
func ObserveCorrespondences(n int) {
	if n > 0 {
		matchCorrespondencesTotal.Add(float64(n))
	}
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentSearcher wraps a correspondence searcher so every containment
// search lands in the search counter.
func InstrumentSearcher(inner match.Searcher) match.Searcher {
	Init()
	return instrumentedSearcher{inner: inner}
}

type instrumentedSearcher struct {
	inner match.Searcher
}

func (s instrumentedSearcher) ContainsLiteral(ctx context.Context, needle string) ([]string, error) {
	matches, err := s.inner.ContainsLiteral(ctx, needle)
	ObserveMatchSearch(err)
	return matches, err
}
