package labresults

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// enrichmentJob is the queued unit of background work: one extracted document
// awaiting structuring, explanation and persistence.
type enrichmentJob struct {
	JobID     string `json:"jobId"`
	PatientID string `json:"patientId"`
	FileName  string `json:"fileName"`
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
	Override  bool   `json:"override"`
}

func encodeJob(job enrichmentJob) (enrichmentJob, string, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return enrichmentJob{}, "", fmt.Errorf("labresults: encode job: %w", err)
	}
	return job, string(body), nil
}
