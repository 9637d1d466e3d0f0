package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the upload-code / submission domain counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	codesIssued        prometheus.Counter
	codesClaimed       prometheus.Counter
	claimConflicts     prometheus.Counter
	submissions        *prometheus.CounterVec
	enrichmentTriggers *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	codesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_codes_issued_total",
		Help: "Total upload codes issued",
	})

	codesClaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_codes_claimed_total",
		Help: "Total upload codes successfully claimed",
	})

	claimConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_code_claim_conflicts_total",
		Help: "Total claim attempts that lost to a concurrent or earlier claim",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_submissions_total",
		Help: "Total submissions entering each moderation status",
	}, []string{"status"})

	enrichmentTriggers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_triggers_total",
		Help: "Total enrichment trigger attempts by outcome",
	}, []string{"outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, codesIssued, codesClaimed,
		claimConflicts, submissions, enrichmentTriggers, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		codesIssued:        codesIssued,
		codesClaimed:       codesClaimed,
		claimConflicts:     claimConflicts,
		submissions:        submissions,
		enrichmentTriggers: enrichmentTriggers,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// IncCodeIssued counts a freshly issued upload code.
func (m *MetricsService) IncCodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

// IncCodeClaimed counts a winning claim.
func (m *MetricsService) IncCodeClaimed() {
	if m == nil {
		return
	}
	m.codesClaimed.Inc()
}

// IncClaimConflict counts a losing claim.
func (m *MetricsService) IncClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflicts.Inc()
}

// IncSubmission counts a submission entering the given moderation status.
func (m *MetricsService) IncSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

// IncEnrichmentTrigger counts an enrichment trigger attempt by outcome.
func (m *MetricsService) IncEnrichmentTrigger(outcome string) {
	if m == nil {
		return
	}
	m.enrichmentTriggers.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
