package labresults

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/pkg/logging"
)

type fakeExtractor struct {
	result *extract.Result
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, data []byte) (*extract.Result, error) {
	return f.result, f.err
}

type memStore struct {
	mu      sync.Mutex
	rows    []storedRow
	history []HistoryEntry

	historyErr error
	insertErr  error
}

type storedRow struct {
	patientID string
	fileName  string
	doc       ResultsDocument
}

func (s *memStore) Insert(ctx context.Context, patientID, fileName string, doc ResultsDocument) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, storedRow{patientID, fileName, doc})
	return nil
}

func (s *memStore) Replace(ctx context.Context, patientID, fileName string, doc ResultsDocument) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []storedRow
	var deleted int64
	for _, row := range s.rows {
		if row.patientID == patientID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = append(kept, storedRow{patientID, fileName, doc})
	return deleted, nil
}

func (s *memStore) History(ctx context.Context, patientID string) ([]HistoryEntry, error) {
	return s.history, s.historyErr
}

func (s *memStore) count(patientID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.patientID == patientID {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (n *recordingNotifier) EnrichmentCompleted(ctx context.Context, patientID, fileName string, resultCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, fileName)
	return nil
}

func (n *recordingNotifier) EnrichmentFailed(ctx context.Context, patientID, fileName, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, fileName)
	return nil
}

func newTestPipeline(t *testing.T, extractor Extractor, store ResultStore, queue queueClient, jobs JobRecorder, opts ...PipelineOption) *Pipeline {
	t.Helper()
	logger := logging.Default()
	structurer := NewStructurer(&scriptedModel{responses: []string{structuredDoc}}, logger, time.Minute)
	explainer := NewExplainer(&echoModel{}, logger, nil, time.Minute, 10)
	return NewPipeline(extractor, structurer, explainer, store, queue, jobs, logger, opts...)
}

func validUpload() Upload {
	return Upload{PatientID: "patient-1", FileName: "analize.pdf", Data: []byte("%PDF-1.4")}
}

func TestProcessSynchronous(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "Hemoglobina 14.5", PageCount: 1}},
		store, nil, nil, WithNotifier(notifier))

	outcome, err := p.Process(context.Background(), validUpload())
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.False(t, outcome.EarlyReturn)
	assert.Equal(t, 2, outcome.ExtractedResultsCount)
	assert.Len(t, outcome.ExtractedResults, 2)
	assert.Equal(t, len("Hemoglobina 14.5"), outcome.ExtractedTextLength)
	assert.True(t, outcome.SavedToDatabase)
	assert.Equal(t, int64(0), outcome.DeletedCount)
	assert.Equal(t, 1, store.count("patient-1"))
	assert.Equal(t, []string{"analize.pdf"}, notifier.completed)

	for _, r := range outcome.ExtractedResults {
		require.NotNil(t, r.Explanation)
	}
}

func TestProcessOverrideReportsDeletedCount(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 5; i++ {
		store.rows = append(store.rows, storedRow{patientID: "patient-1"})
	}
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "text"}}, store, nil, nil)

	u := validUpload()
	u.Override = true
	outcome, err := p.Process(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, int64(5), outcome.DeletedCount)
	assert.Equal(t, 1, store.count("patient-1"), "only the new row survives an override")
}

func TestProcessAppendWithoutOverride(t *testing.T) {
	store := &memStore{rows: []storedRow{{patientID: "patient-1"}}}
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "text"}}, store, nil, nil)

	outcome, err := p.Process(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, int64(0), outcome.DeletedCount)
	assert.Equal(t, 2, store.count("patient-1"), "prior uploads stay alongside the new one")
}

func TestProcessExtractionFailureIsFatal(t *testing.T) {
	notifier := &recordingNotifier{}
	p := newTestPipeline(t, &fakeExtractor{err: errors.New("encrypted")}, &memStore{}, nil, nil,
		WithNotifier(notifier))

	_, err := p.Process(context.Background(), validUpload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
	assert.Equal(t, []string{"analize.pdf"}, notifier.failed)
}

func TestProcessHistoryFailureDegrades(t *testing.T) {
	store := &memStore{historyErr: errors.New("db slow")}
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "text"}}, store, nil, nil)

	outcome, err := p.Process(context.Background(), validUpload())
	require.NoError(t, err, "missing history only costs trend context")
	assert.True(t, outcome.SavedToDatabase)
}

func TestProcessValidation(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "text"}}, &memStore{}, nil, nil)

	tests := []struct {
		name string
		u    Upload
	}{
		{"missing patient", Upload{FileName: "a.pdf", Data: []byte("x")}},
		{"missing file", Upload{PatientID: "p", FileName: "a.pdf"}},
		{"wrong type", Upload{PatientID: "p", FileName: "a.docx", Data: []byte("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(context.Background(), tt.u)
			require.Error(t, err)
		})
	}
}

type fakeJobs struct {
	mu      sync.Mutex
	pending []*JobRecord
}

func (f *fakeJobs) PutPending(ctx context.Context, job *JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Status = JobStatusPending
	f.pending = append(f.pending, job)
	return nil
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.pending {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return nil, ErrJobNotFound
}

func TestProcessEarlyReturn(t *testing.T) {
	store := &memStore{}
	queue := NewMemoryQueue(4)
	jobs := &fakeJobs{}
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "Hemoglobina 14.5", PageCount: 2}},
		store, queue, jobs)

	u := validUpload()
	u.EarlyReturn = true
	outcome, err := p.Process(context.Background(), u)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.EarlyReturn)
	assert.NotEmpty(t, outcome.JobID)
	assert.Equal(t, len("Hemoglobina 14.5"), outcome.ExtractedTextLength)
	assert.Empty(t, outcome.ExtractedResults, "no structured results synchronously")
	assert.Zero(t, outcome.ExtractedResultsCount)
	assert.Equal(t, 0, store.count("patient-1"), "persistence is deferred")

	// The ack's job is pending and the work is on the queue.
	job, err := jobs.GetJob(context.Background(), outcome.JobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)

	msgs, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestProcessEarlyReturnWithoutQueue(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{result: &extract.Result{Text: "text"}}, &memStore{}, nil, nil)

	u := validUpload()
	u.EarlyReturn = true
	_, err := p.Process(context.Background(), u)
	require.Error(t, err)
}
