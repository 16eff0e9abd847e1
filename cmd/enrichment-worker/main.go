package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medicore/clinic-platform/cmd/mainconfig"
	appconfig "github.com/medicore/clinic-platform/internal/config"
	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/internal/labresults"
	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/internal/notify"
	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/internal/timeline"
	"github.com/medicore/clinic-platform/pkg/logging"
)

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
	defer pool.Close()

	var model llm.Client
	switch cfg.LLMProvider {
	case "gemini":
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		model = gemini
	default:
		model = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsConfig), cfg.BedrockModelID)
	}

	extractor := extract.NewClient(cfg.ExtractorBaseURL,
		extract.WithTimeout(cfg.ExtractorTimeout),
		extract.WithLogger(logger),
	)

	enrichMetrics := metrics.NewEnrichmentMetrics(nil)
	structurer := labresults.NewStructurer(model, logger, cfg.LLMTimeout)
	explainer := labresults.NewExplainer(model, logger, enrichMetrics, cfg.LLMTimeout, cfg.ExplanationBatchSize)

	var pipelineOpts []labresults.PipelineOption
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		pipelineOpts = append(pipelineOpts,
			labresults.WithTimelineCache(timeline.NewCache(redisClient, cfg.TimelineCacheTTL, logger)))
	}
	if cfg.LabDocumentsBucket != "" {
		pipelineOpts = append(pipelineOpts,
			labresults.WithDocumentStore(labresults.NewDocumentStore(s3.NewFromConfig(awsConfig), cfg.LabDocumentsBucket, logger)))
	}
	if cfg.EmailProvider == "ses" || cfg.EmailProvider == "sendgrid" || cfg.EmailProvider == "stub" {
		pipelineOpts = append(pipelineOpts,
			labresults.WithNotifier(buildNotifier(cfg, awsConfig, logger)))
	}
	pipelineOpts = append(pipelineOpts, labresults.WithMetrics(enrichMetrics))

	// The worker never enqueues or records jobs through the pipeline; it
	// drives both itself.
	pipeline := labresults.NewPipeline(extractor, structurer, explainer,
		labresults.NewPGStore(pool), nil, nil, logger, pipelineOpts...)

	queue := labresults.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.EnrichmentQueueURL)
	jobStore := labresults.NewJobStore(dynamodb.NewFromConfig(awsConfig), cfg.EnrichmentJobsTable, logger)

	worker := labresults.NewWorker(pipeline, queue, jobStore, logger,
		labresults.WithWorkerCount(cfg.WorkerCount))
	worker.Start()

	logger.Info("enrichment worker started",
		"queue_url", cfg.EnrichmentQueueURL,
		"workers", cfg.WorkerCount,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down enrichment worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := worker.Shutdown(shutdownCtx); err != nil {
		logger.Error("enrichment worker shutdown timed out", "error", err)
		os.Exit(1)
	}
	logger.Info("enrichment worker stopped")
}

func buildNotifier(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *notify.Service {
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			sender = s
		}
	case "stub":
		sender = notify.NewStubEmailSender(logger)
	}
	return notify.NewService(sender, cfg.NotifyInbox, logger)
}
