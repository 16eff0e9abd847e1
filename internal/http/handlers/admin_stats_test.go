package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/pkg/logging"
)

func TestAdminStatsSummarizesMetricFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	tm := metrics.NewTimelineMetrics(reg)
	em := metrics.NewEnrichmentMetrics(reg)

	tm.ObserveFetch("consultations", "ok")
	tm.ObserveFetch("consultations", "ok")
	tm.ObserveFetch("lab_results", "error")
	tm.ObserveBuildLatency(0.2)

	em.ObservePhase("structuring", "ok")
	em.ObservePhase("explanation", "degraded")
	em.ObserveBatchFailure()
	em.ObserveUploadLatency(3.5)
	em.ObserveUploadLatency(7.0)

	h := NewAdminStatsHandler(reg, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, int64(1), resp.TimelineBuilds)
	assert.Equal(t, int64(2), resp.TimelineFetches["consultations"])
	assert.Equal(t, int64(1), resp.TimelineFetches["lab_results"])
	assert.Equal(t, int64(1), resp.EnrichmentPhases["structuring"])
	assert.Equal(t, int64(1), resp.EnrichmentPhases["explanation"])
	assert.Equal(t, int64(1), resp.ExplanationBatches)
	assert.Equal(t, int64(2), resp.Uploads)
}

func TestAdminStatsEmptyRegistry(t *testing.T) {
	h := NewAdminStatsHandler(prometheus.NewRegistry(), logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.TimelineBuilds)
	assert.Empty(t, resp.EnrichmentPhases)
}
