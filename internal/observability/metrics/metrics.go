package metrics

import "github.com/prometheus/client_golang/prometheus"

// TimelineMetrics exposes counters/histograms for timeline aggregation.
type TimelineMetrics struct {
	fetchTotal   *prometheus.CounterVec
	buildLatency prometheus.Histogram
}

func NewTimelineMetrics(reg prometheus.Registerer) *TimelineMetrics {
	m := &TimelineMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "timeline",
			Name:      "category_fetch_total",
			Help:      "Total per-category record fetches",
		}, []string{"category", "status"}),
		buildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinica",
			Subsystem: "timeline",
			Name:      "build_latency_seconds",
			Help:      "Latency of full timeline aggregation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.buildLatency)
	return m
}

func (m *TimelineMetrics) ObserveFetch(category, status string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(category, status).Inc()
}

func (m *TimelineMetrics) ObserveBuildLatency(seconds float64) {
	if m == nil {
		return
	}
	m.buildLatency.Observe(seconds)
}

// EnrichmentMetrics exposes counters/histograms for the lab enrichment pipeline.
type EnrichmentMetrics struct {
	phaseTotal    *prometheus.CounterVec
	batchFailures prometheus.Counter
	uploadLatency prometheus.Histogram
}

func NewEnrichmentMetrics(reg prometheus.Registerer) *EnrichmentMetrics {
	m := &EnrichmentMetrics{
		phaseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "enrichment",
			Name:      "phase_total",
			Help:      "Enrichment pipeline phase outcomes",
		}, []string{"phase", "status"}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "enrichment",
			Name:      "explanation_batch_failures_total",
			Help:      "Explanation batches that degraded to placeholders",
		}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinica",
			Subsystem: "enrichment",
			Name:      "upload_latency_seconds",
			Help:      "End-to-end latency of synchronous uploads",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.phaseTotal, m.batchFailures, m.uploadLatency)
	return m
}

func (m *EnrichmentMetrics) ObservePhase(phase, status string) {
	if m == nil {
		return
	}
	m.phaseTotal.WithLabelValues(phase, status).Inc()
}

func (m *EnrichmentMetrics) ObserveBatchFailure() {
	if m == nil {
		return
	}
	m.batchFailures.Inc()
}

func (m *EnrichmentMetrics) ObserveUploadLatency(seconds float64) {
	if m == nil {
		return
	}
	m.uploadLatency.Observe(seconds)
}
