package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/clinic-platform/cmd/mainconfig"
	appconfig "github.com/medicore/clinic-platform/internal/config"
	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/internal/labresults"
	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// SQS-triggered Lambda variant of the enrichment worker. The queue delivers
// each enqueued upload as one SQS record; status tracking goes through the
// same DynamoDB job table the API polls.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}

	var model llm.Client
	switch cfg.LLMProvider {
	case "gemini":
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		model = gemini
	default:
		model = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsConfig), cfg.BedrockModelID)
	}

	extractor := extract.NewClient(cfg.ExtractorBaseURL,
		extract.WithTimeout(cfg.ExtractorTimeout),
		extract.WithLogger(logger),
	)

	enrichMetrics := metrics.NewEnrichmentMetrics(nil)
	pipelineOpts := []labresults.PipelineOption{labresults.WithMetrics(enrichMetrics)}
	if cfg.LabDocumentsBucket != "" {
		pipelineOpts = append(pipelineOpts,
			labresults.WithDocumentStore(labresults.NewDocumentStore(s3.NewFromConfig(awsConfig), cfg.LabDocumentsBucket, logger)))
	}

	pipeline := labresults.NewPipeline(extractor,
		labresults.NewStructurer(model, logger, cfg.LLMTimeout),
		labresults.NewExplainer(model, logger, enrichMetrics, cfg.LLMTimeout, cfg.ExplanationBatchSize),
		labresults.NewPGStore(pool), nil, nil, logger, pipelineOpts...)

	jobStore := labresults.NewJobStore(
		dynamodb.NewFromConfig(awsConfig), cfg.EnrichmentJobsTable, logger)

	worker := labresults.NewWorker(pipeline, nil, jobStore, logger)

	lambda.Start(func(ctx context.Context, evt events.SQSEvent) error {
		for _, record := range evt.Records {
			if err := worker.HandleJobJSON(ctx, record.Body); err != nil {
				logger.Error("enrichment job failed",
					"message_id", record.MessageId,
					"error", err,
				)
				return fmt.Errorf("message %s: %w", record.MessageId, err)
			}
		}
		return nil
	})
}
