package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medicore/clinic-platform/internal/aisummary"
	"github.com/medicore/clinic-platform/internal/compliance"
	"github.com/medicore/clinic-platform/internal/http/middleware"
	"github.com/medicore/clinic-platform/internal/patient"
	"github.com/medicore/clinic-platform/internal/timeline"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// SummaryReader reads the stored AI summary for a patient.
type SummaryReader interface {
	Get(ctx context.Context, patientID string) (aisummary.Summary, error)
}

// PatientOverviewHandler serves the patient detail page data: identity,
// aggregated timeline and the stored AI summary.
type PatientOverviewHandler struct {
	patients  *patient.Repository
	timeline  *timeline.Service
	summaries SummaryReader
	audit     *compliance.AuditService
	logger    *logging.Logger
}

// NewPatientOverviewHandler creates the handler. summaries and audit may be
// nil; the overview then omits the AI summary and skips audit logging.
func NewPatientOverviewHandler(patients *patient.Repository, svc *timeline.Service, summaries SummaryReader,
	audit *compliance.AuditService, logger *logging.Logger) *PatientOverviewHandler {
	if patients == nil || svc == nil {
		panic("handlers: patient repository and timeline service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientOverviewHandler{
		patients:  patients,
		timeline:  svc,
		summaries: summaries,
		audit:     audit,
		logger:    logger,
	}
}

// OverviewResponse is the patient detail payload.
type OverviewResponse struct {
	Patient  *patient.Data     `json:"patient"`
	Timeline []timeline.Item   `json:"timeline"`
	Counts   timeline.Counts   `json:"counts"`
	Summary  aisummary.Summary `json:"aiSummary"`
}

// TimelineResponse is the standalone timeline payload.
type TimelineResponse struct {
	Timeline []timeline.Item `json:"timeline"`
	Counts   timeline.Counts `json:"counts"`
}

// Overview handles GET /api/patients/{patientID}/overview.
func (h *PatientOverviewHandler) Overview(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientID is required")
		return
	}

	p, err := h.patients.Get(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to load patient", "patient_id", patientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}

	items, err := h.timeline.PatientTimeline(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to build timeline", "patient_id", patientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build timeline")
		return
	}

	resp := OverviewResponse{
		Patient:  p,
		Timeline: items,
		Counts:   timeline.CountByType(items),
		// Degraded default so the summary block always serializes as
		// {"summaries":[],"eventsAnalyzed":0}, never null.
		Summary: aisummary.Summary{Summaries: []aisummary.Entry{}},
	}
	if h.summaries != nil {
		summary, err := h.summaries.Get(r.Context(), patientID)
		if err != nil {
			h.logger.Warn("failed to load AI summary", "patient_id", patientID, "error", err)
		} else {
			resp.Summary = summary
		}
	}

	h.logView(r, patientID, "", len(items))
	writeJSON(w, http.StatusOK, resp)
}

// Timeline handles GET /api/patients/{patientID}/timeline. An optional
// ?type= query narrows the list; counts always cover the unfiltered set.
func (h *PatientOverviewHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientID is required")
		return
	}

	items, err := h.timeline.PatientTimeline(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to build timeline", "patient_id", patientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build timeline")
		return
	}

	counts := timeline.CountByType(items)
	filterType := r.URL.Query().Get("type")
	filtered := timeline.Filter(items, timeline.ItemType(filterType))

	h.logView(r, patientID, filterType, len(filtered))
	writeJSON(w, http.StatusOK, TimelineResponse{
		Timeline: filtered,
		Counts:   counts,
	})
}

func (h *PatientOverviewHandler) logView(r *http.Request, patientID, filterType string, itemCount int) {
	if h.audit == nil {
		return
	}
	actor := middleware.SubjectFromContext(r.Context())
	if err := h.audit.LogTimelineViewed(r.Context(), patientID, actor, filterType, itemCount); err != nil {
		h.logger.Warn("failed to record timeline view audit event", "error", err)
	}
}
