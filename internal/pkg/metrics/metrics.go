// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replybot"

// Metrics holds all service metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Reply matching
	RuleMatches   *prometheus.CounterVec
	MatchDuration prometheus.Histogram
	RulesLoaded   prometheus.Gauge
	RuleRefreshes *prometheus.CounterVec

	// OCR
	OCRRequests *prometheus.CounterVec
	OCRDuration prometheus.Histogram

	// Duplicate detection
	DuplicateChecks  *prometheus.CounterVec
	DuplicateInserts *prometheus.CounterVec
	BloomFallbacks   prometheus.Counter
}

// New registers every collector on a fresh registry, together with the
// go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RuleMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Messages answered, by the rule type that produced the reply (none when unanswered)",
		}, []string{"type"}),
		MatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time to match a single message, OCR included",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RulesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Rules in the current cache snapshot",
		}),
		RuleRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_refreshes_total",
			Help:      "Rule cache refreshes, by result",
		}, []string{"result"}),
		OCRRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_requests_total",
			Help:      "OCR calls, by result",
		}, []string{"result"}),
		OCRDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_duration_seconds",
			Help:      "Time spent in a single OCR call",
			Buckets:   prometheus.DefBuckets,
		}),
		DuplicateChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_checks_total",
			Help:      "Duplicate image checks, by category and result (hit, miss, skipped)",
		}, []string{"category", "result"}),
		DuplicateInserts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_inserts_total",
			Help:      "Images added to a category index",
		}, []string{"category"}),
		BloomFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bloom_fallbacks_total",
			Help:      "Exact-hash probes that skipped the bloom filter because redis failed",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordMatch records the outcome of one Match call.
func (m *Metrics) RecordMatch(ruleType string, d time.Duration) {
	if m == nil {
		return
	}
	if ruleType == "" {
		ruleType = "none"
	}
	m.RuleMatches.WithLabelValues(ruleType).Inc()
	m.MatchDuration.Observe(d.Seconds())
}

// RecordRefresh records a rule cache refresh.
func (m *Metrics) RecordRefresh(rules int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RuleRefreshes.WithLabelValues("error").Inc()
		return
	}
	m.RuleRefreshes.WithLabelValues("ok").Inc()
	m.RulesLoaded.Set(float64(rules))
}

// RecordOCR records one OCR call.
func (m *Metrics) RecordOCR(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OCRRequests.WithLabelValues(result).Inc()
	m.OCRDuration.Observe(d.Seconds())
}

// RecordDuplicateCheck records the result of an existence check.
func (m *Metrics) RecordDuplicateCheck(category, result string) {
	if m == nil {
		return
	}
	m.DuplicateChecks.WithLabelValues(category, result).Inc()
}

// RecordInsert records an image added to a category.
func (m *Metrics) RecordInsert(category string) {
	if m == nil {
		return
	}
	m.DuplicateInserts.WithLabelValues(category).Inc()
}

// RecordBloomFallback records a bloom filter failure.
func (m *Metrics) RecordBloomFallback() {
	if m == nil {
		return
	}
	m.BloomFallbacks.Inc()
}
