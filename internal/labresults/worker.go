package labresults

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/medicore/clinic-platform/pkg/logging"
)

const (
	defaultWorkers     = 2
	defaultReceiveWait = 10
	defaultReceiveMax  = 5
)

// Worker consumes queued enrichment jobs and runs the deferred phases.
type Worker struct {
	pipeline *Pipeline
	queue    queueClient
	jobs     JobUpdater
	logger   *logging.Logger

	workers     int
	receiveWait int
	receiveMax  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption customizes the worker pool.
type WorkerOption func(*Worker)

// WithWorkerCount sets the number of concurrent consumers.
func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// NewWorker builds an enrichment worker. jobs may be nil when job status
// tracking is disabled, and queue may be nil when messages arrive through
// HandleJobJSON instead of Start (the Lambda consumer).
func NewWorker(pipeline *Pipeline, queue queueClient, jobs JobUpdater, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if pipeline == nil {
		panic("labresults: pipeline cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		pipeline:    pipeline,
		queue:       queue,
		jobs:        jobs,
		logger:      logger,
		workers:     defaultWorkers,
		receiveWait: defaultReceiveWait,
		receiveMax:  defaultReceiveMax,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the consumer goroutines.
func (w *Worker) Start() {
	if w.queue == nil {
		panic("labresults: worker started without a queue")
	}
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(i + 1)
	}
}

// Shutdown stops the consumers and waits for in-flight jobs to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *Worker) run(workerID int) {
	defer w.wg.Done()
	w.logger.Debug("enrichment worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("enrichment worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(w.ctx, w.receiveMax, w.receiveWait)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive enrichment jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(msg)
		}
	}
}

func (w *Worker) handleMessage(msg queueMessage) {
	var job enrichmentJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("discarding undecodable enrichment job", "message_id", msg.ID, "error", err)
		w.deleteMessage(context.WithoutCancel(w.ctx), msg)
		return
	}

	// Detached from the receive loop's cancellation: a job picked up before
	// Shutdown runs to completion inside the shutdown window instead of
	// aborting its model calls and reporting a spurious failure.
	ctx := context.WithoutCancel(w.ctx)
	if err := w.HandleJob(ctx, job); err != nil {
		w.logger.Error("enrichment job failed",
			"job_id", job.JobID, "patient_id", job.PatientID, "error", err)
	}
	// The outcome is recorded in the job store either way; redelivery would
	// re-run paid model calls for a job that already reported failure.
	w.deleteMessage(ctx, msg)
}

// HandleJob runs the deferred enrichment phases for one decoded job and
// records its terminal state. Shared with the Lambda consumer.
func (w *Worker) HandleJob(ctx context.Context, job enrichmentJob) error {
	outcome, err := w.pipeline.enrich(ctx, job.PatientID, job.FileName, job.Text, job.Override)
	if err != nil {
		w.pipeline.notifyFailure(ctx, job.PatientID, job.FileName, err)
		if w.jobs != nil {
			if markErr := w.jobs.MarkFailed(ctx, job.JobID, err.Error()); markErr != nil {
				w.logger.Error("failed to mark job failed", "job_id", job.JobID, "error", markErr)
			}
		}
		return err
	}

	if w.jobs != nil {
		if err := w.jobs.MarkCompleted(ctx, job.JobID, outcome.ExtractedResultsCount, outcome.DeletedCount); err != nil {
			w.logger.Error("failed to mark job completed", "job_id", job.JobID, "error", err)
		}
	}
	return nil
}

// HandleJobJSON decodes and runs one job from its wire form. Used by the
// Lambda entrypoint, which receives raw SQS bodies.
func (w *Worker) HandleJobJSON(ctx context.Context, body string) error {
	var job enrichmentJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return errors.New("labresults: undecodable enrichment job")
	}
	return w.HandleJob(ctx, job)
}

func (w *Worker) deleteMessage(ctx context.Context, msg queueMessage) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Warn("failed to delete queue message", "message_id", msg.ID, "error", err)
	}
}
