package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// Pinger is the database liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health, including the extraction sidecar.
type HealthHandler struct {
	db        Pinger
	extractor *extract.Client
	logger    *logging.Logger
}

// NewHealthHandler creates the health handler. Both dependencies are
// optional; absent ones are reported as "skipped".
func NewHealthHandler(db Pinger, extractor *extract.Client, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, extractor: extractor, logger: logger}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "unhealthy"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "skipped"
	}

	if h.extractor != nil {
		if _, err := h.extractor.Health(ctx); err != nil {
			checks["extractor"] = "unhealthy"
			healthy = false
		} else {
			checks["extractor"] = "ok"
		}
	} else {
		checks["extractor"] = "skipped"
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}
