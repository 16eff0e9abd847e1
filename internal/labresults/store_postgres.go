package labresults

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxDB is the subset of pgxpool.Pool the store uses (allows pgxmock).
type pgxDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore persists enrichment output in the lab_results table.
type PGStore struct {
	db pgxDB
}

// NewPGStore builds a lab results store over a pgx pool (or mock).
func NewPGStore(db pgxDB) *PGStore {
	if db == nil {
		panic("labresults: pgx pool cannot be nil")
	}
	return &PGStore{db: db}
}

// Insert appends one lab_results row for an upload. The filename identifies
// the batch; the structured results live in the jsonb column.
func (s *PGStore) Insert(ctx context.Context, patientID, fileName string, doc ResultsDocument) error {
	payload, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("labresults: encode results: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO lab_results (patient_id, test_name, results, result_date)
		VALUES ($1, $2, $3, now())`, patientID, fileName, []byte(payload))
	if err != nil {
		return fmt.Errorf("labresults: insert failed: %w", err)
	}
	return nil
}

// Replace deletes every prior lab_results row for the patient and inserts the
// new batch, atomically. Returns the number of rows deleted. A crash between
// delete and insert must never leave the patient without results, hence the
// single transaction.
func (s *PGStore) Replace(ctx context.Context, patientID, fileName string, doc ResultsDocument) (int64, error) {
	payload, err := doc.Encode()
	if err != nil {
		return 0, fmt.Errorf("labresults: encode results: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("labresults: begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM lab_results WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("labresults: delete prior results: %w", err)
	}
	deleted := tag.RowsAffected()

	_, err = tx.Exec(ctx, `
		INSERT INTO lab_results (patient_id, test_name, results, result_date)
		VALUES ($1, $2, $3, now())`, patientID, fileName, []byte(payload))
	if err != nil {
		return 0, fmt.Errorf("labresults: insert replacement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("labresults: commit replace: %w", err)
	}
	return deleted, nil
}

// History returns the patient's prior results flattened for trend context,
// oldest first so the model reads them chronologically.
func (s *PGStore) History(ctx context.Context, patientID string) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT results, result_date
		FROM lab_results
		WHERE patient_id = $1
		ORDER BY result_date ASC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("labresults: history query: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			payload    []byte
			resultDate time.Time
		)
		if err := rows.Scan(&payload, &resultDate); err != nil {
			return nil, fmt.Errorf("labresults: history scan: %w", err)
		}
		out = append(out, flattenHistoryRow(payload, resultDate.UTC().Format("2006-01-02"))...)
	}
	return out, rows.Err()
}

// flattenHistoryRow extracts the per-test entries from one stored jsonb
// payload. Malformed payloads contribute nothing.
func flattenHistoryRow(payload []byte, resultDate string) []HistoryEntry {
	var doc ResultsDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil
	}
	entries := make([]HistoryEntry, 0, len(doc.Results))
	for _, r := range doc.Results {
		if r.TestName == "" {
			continue
		}
		entries = append(entries, HistoryEntry{
			TestName:   r.TestName,
			Result:     r.Result,
			Unit:       r.Unit,
			ResultDate: resultDate,
		})
	}
	return entries
}
