package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/medicore/clinic-platform/pkg/logging"
)

// AdminStatsHandler summarizes pipeline health for the admin dashboard by
// reading the process metric families directly, so the dashboard does not
// need a Prometheus server in small deployments.
type AdminStatsHandler struct {
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewAdminStatsHandler creates the stats handler. A nil gatherer falls back
// to the default registry.
func NewAdminStatsHandler(gatherer prometheus.Gatherer, logger *logging.Logger) *AdminStatsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminStatsHandler{gatherer: gatherer, logger: logger}
}

// StatsResponse is the admin stats payload.
type StatsResponse struct {
	TimelineBuilds     int64            `json:"timelineBuilds"`
	TimelineFetches    map[string]int64 `json:"timelineFetches"`
	EnrichmentPhases   map[string]int64 `json:"enrichmentPhases"`
	ExplanationBatches int64            `json:"explanationBatchFailures"`
	Uploads            int64            `json:"uploads"`
}

// GetStats handles GET /admin/stats.
func (h *AdminStatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	mfs, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Error("failed to gather metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to gather metrics")
		return
	}

	resp := StatsResponse{
		TimelineFetches:  map[string]int64{},
		EnrichmentPhases: map[string]int64{},
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case "clinica_timeline_build_latency_seconds":
			resp.TimelineBuilds = histogramSampleCount(mf)
		case "clinica_timeline_category_fetch_total":
			sumCounterByLabel(mf, "category", resp.TimelineFetches)
		case "clinica_enrichment_phase_total":
			sumCounterByLabel(mf, "phase", resp.EnrichmentPhases)
		case "clinica_enrichment_explanation_batch_failures_total":
			resp.ExplanationBatches = sumCounter(mf)
		case "clinica_enrichment_upload_latency_seconds":
			resp.Uploads = histogramSampleCount(mf)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func histogramSampleCount(mf *dto.MetricFamily) int64 {
	var total uint64
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetHistogram() == nil {
			continue
		}
		total += metric.GetHistogram().GetSampleCount()
	}
	return int64(total)
}

func sumCounter(mf *dto.MetricFamily) int64 {
	var total float64
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		total += metric.GetCounter().GetValue()
	}
	return int64(total)
}

func sumCounterByLabel(mf *dto.MetricFamily, label string, out map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		key := ""
		for _, lp := range metric.Label {
			if lp != nil && lp.GetName() == label {
				key = lp.GetValue()
				break
			}
		}
		if key == "" {
			continue
		}
		out[key] += int64(metric.GetCounter().GetValue())
	}
}
