package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/internal/aisummary"
	"github.com/medicore/clinic-platform/internal/http/handlers"
	"github.com/medicore/clinic-platform/pkg/logging"
)

type stubReader struct{}

func (stubReader) Get(ctx context.Context, patientID string) (aisummary.Summary, error) {
	return aisummary.Summary{}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, patientID string) (aisummary.Summary, error) {
	return aisummary.Summary{
		Summaries: []aisummary.Entry{{Subject: "Stare generală", Summary: "Stabil."}},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(&Config{
		Logger:         logging.Default(),
		Health:         handlers.NewHealthHandler(nil, nil, logging.Default()),
		AISummary:      handlers.NewAISummaryHandler(stubReader{}, stubGenerator{}, nil, logging.Default()),
		AdminStats:     handlers.NewAdminStatsHandler(reg, logging.Default()),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		UploadAPIKey:   "machine-key",
		UserJWTSecret:  "staff-secret",
	})
}

func staffToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "dr-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsIsPublic(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMachineRoutesRequireAPIKey(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/ai-summary/refresh",
		strings.NewReader(`{"patient_id":"patient-1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMachineRoutesAcceptValidAPIKey(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/ai-summary/refresh",
		strings.NewReader(`{"patient_id":"patient-1"}`))
	req.Header.Set("X-Api-Key", "machine-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffRoutesRequireJWT(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffRoutesAcceptValidJWT(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "staff-secret"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
