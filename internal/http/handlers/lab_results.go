package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medicore/clinic-platform/internal/compliance"
	"github.com/medicore/clinic-platform/internal/http/middleware"
	"github.com/medicore/clinic-platform/internal/labresults"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// maxUploadBytes caps the multipart form size for lab document uploads.
const maxUploadBytes = 32 << 20

// LabResultsHandler serves the lab document upload endpoint and the job
// status endpoint that backs early-return polling.
type LabResultsHandler struct {
	pipeline *labresults.Pipeline
	jobs     labresults.JobRecorder
	audit    *compliance.AuditService
	logger   *logging.Logger
}

// NewLabResultsHandler creates a lab results handler. jobs may be nil when
// early-return mode is not offered.
func NewLabResultsHandler(pipeline *labresults.Pipeline, jobs labresults.JobRecorder, audit *compliance.AuditService, logger *logging.Logger) *LabResultsHandler {
	if pipeline == nil {
		panic("handlers: pipeline cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LabResultsHandler{
		pipeline: pipeline,
		jobs:     jobs,
		audit:    audit,
		logger:   logger,
	}
}

// Upload handles POST /api/lab-results. It expects multipart/form-data with
// a "file" part plus patient_id, override and earlyReturn fields.
func (h *LabResultsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "invalid content type, expected multipart/form-data")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no PDF file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	upload := labresults.Upload{
		PatientID:   strings.TrimSpace(r.FormValue("patient_id")),
		FileName:    header.Filename,
		Data:        data,
		Override:    parseBoolFlag(r.FormValue("override")),
		EarlyReturn: parseBoolFlag(r.FormValue("earlyReturn")),
	}

	if err := labresults.ValidateUpload(upload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.pipeline.Process(r.Context(), upload)
	if err != nil {
		h.logger.Error("lab upload failed",
			"patient_id", upload.PatientID,
			"file_name", upload.FileName,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if h.audit != nil && !outcome.EarlyReturn {
		if err := h.audit.LogLabUpload(r.Context(), upload.PatientID, middleware.SubjectFromContext(r.Context()), upload.FileName,
			outcome.ExtractedResultsCount, outcome.DeletedCount, upload.Override); err != nil {
			h.logger.Warn("failed to record lab upload audit event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, outcome)
}

// JobStatus handles GET /api/lab-results/jobs/{jobID}.
func (h *LabResultsHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusNotFound, "background jobs are not enabled")
		return
	}
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "jobID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, labresults.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to fetch job", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func parseBoolFlag(v string) bool {
	return v == "true" || v == "1"
}
