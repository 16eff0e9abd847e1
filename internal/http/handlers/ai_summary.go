package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medicore/clinic-platform/internal/aisummary"
	"github.com/medicore/clinic-platform/internal/compliance"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// SummaryGenerator regenerates the AI summary for a patient.
type SummaryGenerator interface {
	Generate(ctx context.Context, patientID string) (aisummary.Summary, error)
}

// AISummaryHandler serves the stored AI summary and the internal refresh
// webhook fired when a patient's source records change.
type AISummaryHandler struct {
	summaries SummaryReader
	generator SummaryGenerator
	audit     *compliance.AuditService
	logger    *logging.Logger
}

// NewAISummaryHandler creates the handler.
func NewAISummaryHandler(summaries SummaryReader, generator SummaryGenerator, audit *compliance.AuditService, logger *logging.Logger) *AISummaryHandler {
	if summaries == nil || generator == nil {
		panic("handlers: summary reader and generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AISummaryHandler{
		summaries: summaries,
		generator: generator,
		audit:     audit,
		logger:    logger,
	}
}

// Get handles GET /api/patients/{patientID}/ai-summary.
func (h *AISummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientID is required")
		return
	}

	summary, err := h.summaries.Get(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to load AI summary", "patient_id", patientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load AI summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type refreshRequest struct {
	PatientID string `json:"patient_id"`
}

// Refresh handles POST /internal/ai-summary/refresh. It regenerates the
// summary synchronously and responds with the stored document.
func (h *AISummaryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.PatientID == "" {
		writeError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	summary, err := h.generator.Generate(r.Context(), req.PatientID)
	if err != nil {
		h.logger.Error("AI summary generation failed", "patient_id", req.PatientID, "error", err)
		writeError(w, http.StatusBadGateway, "AI summary generation failed")
		return
	}

	if h.audit != nil {
		if err := h.audit.LogAISummaryGenerated(r.Context(), req.PatientID, len(summary.Summaries)); err != nil {
			h.logger.Warn("failed to record AI summary audit event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, summary)
}
