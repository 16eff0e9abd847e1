package labresults

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/medicore/clinic-platform/pkg/logging"
)

// s3API is the subset of the S3 client used by DocumentStore.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DocumentStore archives uploaded lab documents to S3 so the original PDF can
// be re-examined after enrichment. If bucket is empty, all operations are
// no-ops.
type DocumentStore struct {
	bucket   string
	s3Client s3API
	logger   *logging.Logger
}

// NewDocumentStore creates a document archive.
func NewDocumentStore(s3Client s3API, bucket string, logger *logging.Logger) *DocumentStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &DocumentStore{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *DocumentStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Archive stores the raw document under a date-partitioned key. Archival is
// best effort from the pipeline's point of view; callers log and continue on
// error.
func (s *DocumentStore) Archive(ctx context.Context, patientID, fileName string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("lab-documents/%d/%02d/%02d/%s/%s",
		now.Year(), now.Month(), now.Day(), patientID, fileName)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("labresults: s3 put %s: %w", key, err)
	}

	s.logger.Info("lab document archived",
		"patient_id", patientID, "s3_key", key, "bytes", len(data))
	return key, nil
}
