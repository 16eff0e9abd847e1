package aisummary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxStoreConn is the subset of pgxpool.Pool the store uses (allows pgxmock).
type pgxStoreConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists one summary document per patient in ai_summaries, keyed by
// patient_id.
type Store struct {
	db pgxStoreConn
}

// NewStore builds a summary store over a pgx pool (or mock).
func NewStore(db pgxStoreConn) *Store {
	if db == nil {
		panic("aisummary: pgx conn cannot be nil")
	}
	return &Store{db: db}
}

// Get returns the stored summary for a patient, already validated. A patient
// with no summary yet gets the zero summary, not an error.
func (s *Store) Get(ctx context.Context, patientID string) (Summary, error) {
	var (
		content     []byte
		generatedAt time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT content, generated_at
		FROM ai_summaries
		WHERE patient_id = $1`, patientID).Scan(&content, &generatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{Summaries: []Entry{}}, nil
	}
	if err != nil {
		return Summary{}, fmt.Errorf("aisummary: get failed: %w", err)
	}

	summary := ParseDocument(content)
	summary.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
	return summary, nil
}

// Upsert writes the summary document for a patient, replacing any previous
// one.
func (s *Store) Upsert(ctx context.Context, patientID string, content json.RawMessage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_summaries (patient_id, content, generated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (patient_id) DO UPDATE SET
		    content = EXCLUDED.content,
		    generated_at = EXCLUDED.generated_at`, patientID, []byte(content))
	if err != nil {
		return fmt.Errorf("aisummary: upsert failed: %w", err)
	}
	return nil
}
