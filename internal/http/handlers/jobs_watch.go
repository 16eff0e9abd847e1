package handlers

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/medicore/clinic-platform/internal/labresults"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// JobWatchHandler streams enrichment job status changes over a WebSocket so
// the upload UI can show progress without polling the REST endpoint.
type JobWatchHandler struct {
	jobs         labresults.JobRecorder
	logger       *logging.Logger
	pollInterval time.Duration
	maxWatch     time.Duration
}

// JobStatusEvent is one frame on the watch stream.
type JobStatusEvent struct {
	Type   string                `json:"type"` // "status" or "error"
	Job    *labresults.JobRecord `json:"job,omitempty"`
	Error  string                `json:"error,omitempty"`
	Closed bool                  `json:"closed,omitempty"`
}

// NewJobWatchHandler creates the watch handler.
func NewJobWatchHandler(jobs labresults.JobRecorder, logger *logging.Logger) *JobWatchHandler {
	if jobs == nil {
		panic("handlers: job recorder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobWatchHandler{
		jobs:         jobs,
		logger:       logger,
		pollInterval: time.Second,
		maxWatch:     5 * time.Minute,
	}
}

// Watch upgrades to WebSocket and streams status for the job named by the
// ?job= query until the job reaches a terminal state.
func (h *JobWatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *JobWatchHandler) serveWS(conn *websocket.Conn, r *http.Request) {
	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		_ = websocket.JSON.Send(conn, JobStatusEvent{Type: "error", Error: "missing job parameter", Closed: true})
		return
	}

	h.logger.Info("job watch opened", "job_id", jobID)
	deadline := time.Now().Add(h.maxWatch)
	var lastStatus labresults.JobStatus

	for {
		job, err := h.jobs.GetJob(r.Context(), jobID)
		switch {
		case errors.Is(err, labresults.ErrJobNotFound):
			_ = websocket.JSON.Send(conn, JobStatusEvent{Type: "error", Error: "job not found", Closed: true})
			return
		case err != nil:
			h.logger.Warn("job watch fetch failed", "job_id", jobID, "error", err)
			_ = websocket.JSON.Send(conn, JobStatusEvent{Type: "error", Error: "failed to fetch job", Closed: true})
			return
		}

		if job.Status != lastStatus {
			lastStatus = job.Status
			terminal := job.Status == labresults.JobStatusCompleted || job.Status == labresults.JobStatusFailed
			if err := websocket.JSON.Send(conn, JobStatusEvent{Type: "status", Job: job, Closed: terminal}); err != nil {
				return
			}
			if terminal {
				return
			}
		}

		if time.Now().After(deadline) {
			_ = websocket.JSON.Send(conn, JobStatusEvent{Type: "error", Error: "watch timed out", Closed: true})
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(h.pollInterval):
		}
	}
}
