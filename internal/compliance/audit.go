// Package compliance keeps the clinical record access trail: who looked at a
// patient's timeline, what documents were uploaded and when AI summaries were
// regenerated.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audited access.
type AuditEventType string

const (
	// EventTimelineViewed is logged when a patient timeline is fetched.
	EventTimelineViewed AuditEventType = "access.timeline_viewed"
	// EventLabUpload is logged when a lab document is uploaded.
	EventLabUpload AuditEventType = "record.lab_upload"
	// EventLabOverride is logged when an upload replaces all prior results.
	EventLabOverride AuditEventType = "record.lab_override"
	// EventAISummaryGenerated is logged when an AI summary is regenerated.
	EventAISummaryGenerated AuditEventType = "record.ai_summary_generated"
)

// AuditEvent represents an immutable access trail record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	PatientID string          `json:"patient_id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For lab uploads
	FileName     string `json:"file_name,omitempty"`
	ResultCount  int    `json:"result_count,omitempty"`
	DeletedCount int64  `json:"deleted_count,omitempty"`

	// For timeline views
	FilterType string `json:"filter_type,omitempty"`
	ItemCount  int    `json:"item_count,omitempty"`

	// For AI summaries
	SummaryCount int `json:"summary_count,omitempty"`
}

// AuditService handles access trail logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records one audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, patient_id, actor_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.PatientID,
		nullString(event.ActorID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogTimelineViewed records a timeline fetch.
func (s *AuditService) LogTimelineViewed(ctx context.Context, patientID, actorID, filterType string, itemCount int) error {
	details, _ := json.Marshal(AuditDetails{FilterType: filterType, ItemCount: itemCount})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventTimelineViewed,
		PatientID: patientID,
		ActorID:   actorID,
		Details:   details,
	})
}

// LogLabUpload records a lab document upload, including override semantics.
func (s *AuditService) LogLabUpload(ctx context.Context, patientID, actorID, fileName string, resultCount int, deletedCount int64, override bool) error {
	details, _ := json.Marshal(AuditDetails{
		FileName:     fileName,
		ResultCount:  resultCount,
		DeletedCount: deletedCount,
	})
	eventType := EventLabUpload
	if override {
		eventType = EventLabOverride
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		PatientID: patientID,
		ActorID:   actorID,
		Details:   details,
	})
}

// LogAISummaryGenerated records an AI summary regeneration.
func (s *AuditService) LogAISummaryGenerated(ctx context.Context, patientID string, summaryCount int) error {
	details, _ := json.Marshal(AuditDetails{SummaryCount: summaryCount})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventAISummaryGenerated,
		PatientID: patientID,
		Details:   details,
	})
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
