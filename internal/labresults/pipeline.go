package labresults

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/internal/timeline"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// Extractor is the document text extraction contract (phase 0).
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*extract.Result, error)
}

// ResultStore is the persistence contract for enrichment output.
type ResultStore interface {
	Insert(ctx context.Context, patientID, fileName string, doc ResultsDocument) error
	Replace(ctx context.Context, patientID, fileName string, doc ResultsDocument) (int64, error)
	History(ctx context.Context, patientID string) ([]HistoryEntry, error)
}

// Notifier is told about enrichment outcomes. Delivery is best effort.
type Notifier interface {
	EnrichmentCompleted(ctx context.Context, patientID, fileName string, resultCount int) error
	EnrichmentFailed(ctx context.Context, patientID, fileName, reason string) error
}

// Upload is one lab document submission.
type Upload struct {
	PatientID   string
	FileName    string
	Data        []byte
	Override    bool
	EarlyReturn bool
}

// Outcome reports what the pipeline did for an upload. In early-return mode
// only the extraction fields and JobID are populated.
type Outcome struct {
	Success               bool         `json:"success"`
	FileName              string       `json:"fileName"`
	ExtractedTextLength   int          `json:"extractedTextLength"`
	ExtractedResultsCount int          `json:"extractedResultsCount,omitempty"`
	ExtractedResults      []TestResult `json:"extractedResults,omitempty"`
	Override              bool         `json:"override"`
	DeletedCount          int64        `json:"deletedCount"`
	SavedToDatabase       bool         `json:"savedToDatabase"`
	EarlyReturn           bool         `json:"earlyReturn,omitempty"`
	JobID                 string       `json:"jobId,omitempty"`
}

// Pipeline orchestrates extraction, structuring, explanation and persistence
// for uploaded lab documents.
type Pipeline struct {
	extractor  Extractor
	structurer *Structurer
	explainer  *Explainer
	store      ResultStore
	queue      queueClient
	jobs       JobRecorder
	docs       *DocumentStore
	cache      *timeline.Cache
	notifier   Notifier
	metrics    *metrics.EnrichmentMetrics
	logger     *logging.Logger
}

// PipelineOption customizes optional collaborators.
type PipelineOption func(*Pipeline)

// WithDocumentStore wires S3 archival of the raw uploads.
func WithDocumentStore(docs *DocumentStore) PipelineOption {
	return func(p *Pipeline) { p.docs = docs }
}

// WithTimelineCache wires invalidation of the aggregated timeline cache.
func WithTimelineCache(cache *timeline.Cache) PipelineOption {
	return func(p *Pipeline) { p.cache = cache }
}

// WithNotifier wires outcome notifications.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *metrics.EnrichmentMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline builds the enrichment pipeline. queue and jobs may be nil when
// early-return mode is not offered (the worker passes nil for both).
func NewPipeline(extractor Extractor, structurer *Structurer, explainer *Explainer, store ResultStore,
	queue queueClient, jobs JobRecorder, logger *logging.Logger, opts ...PipelineOption) *Pipeline {
	if extractor == nil || structurer == nil || explainer == nil || store == nil {
		panic("labresults: extractor, structurer, explainer and store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{
		extractor:  extractor,
		structurer: structurer,
		explainer:  explainer,
		store:      store,
		queue:      queue,
		jobs:       jobs,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateUpload checks the input contract. Violations are immediate caller
// errors, never pipeline failures.
func ValidateUpload(u Upload) error {
	if u.PatientID == "" {
		return fmt.Errorf("labresults: patient_id is required")
	}
	if len(u.Data) == 0 {
		return fmt.Errorf("labresults: no PDF file provided")
	}
	if !strings.HasSuffix(strings.ToLower(u.FileName), ".pdf") {
		return fmt.Errorf("labresults: invalid file type, only PDF files are allowed")
	}
	return nil
}

// Process runs the pipeline for one upload. With EarlyReturn set, the caller
// gets an acknowledgment as soon as extraction succeeds and the remaining
// phases run from the queue, detached from the request lifecycle.
func (p *Pipeline) Process(ctx context.Context, u Upload) (*Outcome, error) {
	if err := ValidateUpload(u); err != nil {
		return nil, err
	}

	start := time.Now()

	extracted, err := p.extractor.Extract(ctx, u.FileName, u.Data)
	if err != nil {
		p.observePhase("extract", "error")
		p.notifyFailure(ctx, u.PatientID, u.FileName, err)
		return nil, fmt.Errorf("labresults: extraction failed: %w", err)
	}
	p.observePhase("extract", "ok")

	if p.docs.Enabled() {
		if _, err := p.docs.Archive(ctx, u.PatientID, u.FileName, u.Data); err != nil {
			p.logger.Warn("lab document archive failed", "file", u.FileName, "error", err)
		}
	}

	if u.EarlyReturn {
		outcome, err := p.enqueue(ctx, u, extracted)
		if err != nil {
			return nil, err
		}
		p.observeLatency(start)
		return outcome, nil
	}

	outcome, err := p.enrich(ctx, u.PatientID, u.FileName, extracted.Text, u.Override)
	if err != nil {
		p.notifyFailure(ctx, u.PatientID, u.FileName, err)
		return nil, err
	}
	outcome.ExtractedTextLength = len(extracted.Text)
	p.observeLatency(start)
	return outcome, nil
}

// enqueue hands the extracted text to the background queue and records a
// pending job for status polling.
func (p *Pipeline) enqueue(ctx context.Context, u Upload, extracted *extract.Result) (*Outcome, error) {
	if p.queue == nil {
		return nil, fmt.Errorf("labresults: early return requested but no queue configured")
	}

	job, body, err := encodeJob(enrichmentJob{
		PatientID: u.PatientID,
		FileName:  u.FileName,
		Text:      extracted.Text,
		PageCount: extracted.PageCount,
		Override:  u.Override,
	})
	if err != nil {
		return nil, err
	}

	if p.jobs != nil {
		record := &JobRecord{JobID: job.JobID, PatientID: u.PatientID, FileName: u.FileName}
		if err := p.jobs.PutPending(ctx, record); err != nil {
			return nil, err
		}
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return nil, fmt.Errorf("labresults: enqueue failed: %w", err)
	}

	p.logger.Info("enrichment deferred to background",
		"job_id", job.JobID, "patient_id", u.PatientID, "file", u.FileName)

	return &Outcome{
		Success:             true,
		EarlyReturn:         true,
		FileName:            u.FileName,
		ExtractedTextLength: len(extracted.Text),
		Override:            u.Override,
		JobID:               job.JobID,
	}, nil
}

// enrich runs structuring, explanation and persistence for already-extracted
// text. Used both synchronously and from the worker.
func (p *Pipeline) enrich(ctx context.Context, patientID, fileName, text string, override bool) (*Outcome, error) {
	results, err := p.structurer.Structure(ctx, text)
	if err != nil {
		p.observePhase("structure", "error")
		return nil, err
	}
	p.observePhase("structure", "ok")

	history, err := p.store.History(ctx, patientID)
	if err != nil {
		// Trend context is a nice-to-have; explanations still work without it.
		p.logger.Warn("lab history fetch failed, explaining without trend context",
			"patient_id", patientID, "error", err)
		history = nil
	}

	results = p.explainer.Explain(ctx, results, history)
	p.observePhase("explain", "ok")

	doc := ResultsDocument{Results: results}
	var deleted int64
	if override {
		deleted, err = p.store.Replace(ctx, patientID, fileName, doc)
	} else {
		err = p.store.Insert(ctx, patientID, fileName, doc)
	}
	if err != nil {
		p.observePhase("persist", "error")
		return nil, err
	}
	p.observePhase("persist", "ok")

	p.cache.Invalidate(ctx, patientID)

	if p.notifier != nil {
		if err := p.notifier.EnrichmentCompleted(ctx, patientID, fileName, len(results)); err != nil {
			p.logger.Warn("enrichment notification failed", "patient_id", patientID, "error", err)
		}
	}

	p.logger.Info("lab document enriched",
		"patient_id", patientID,
		"file", fileName,
		"results", len(results),
		"override", override,
		"deleted", deleted,
	)

	return &Outcome{
		Success:               true,
		FileName:              fileName,
		ExtractedResultsCount: len(results),
		ExtractedResults:      results,
		Override:              override,
		DeletedCount:          deleted,
		SavedToDatabase:       true,
	}, nil
}

func (p *Pipeline) notifyFailure(ctx context.Context, patientID, fileName string, cause error) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.EnrichmentFailed(ctx, patientID, fileName, cause.Error()); err != nil {
		p.logger.Warn("failure notification failed", "patient_id", patientID, "error", err)
	}
}

func (p *Pipeline) observePhase(phase, status string) {
	if p.metrics != nil {
		p.metrics.ObservePhase(phase, status)
	}
}

func (p *Pipeline) observeLatency(start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveUploadLatency(time.Since(start).Seconds())
	}
}
