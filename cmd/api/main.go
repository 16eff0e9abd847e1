package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medicore/clinic-platform/cmd/mainconfig"
	"github.com/medicore/clinic-platform/internal/aisummary"
	"github.com/medicore/clinic-platform/internal/api/router"
	"github.com/medicore/clinic-platform/internal/compliance"
	appconfig "github.com/medicore/clinic-platform/internal/config"
	"github.com/medicore/clinic-platform/internal/extract"
	"github.com/medicore/clinic-platform/internal/http/handlers"
	"github.com/medicore/clinic-platform/internal/labresults"
	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/internal/notify"
	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/internal/patient"
	"github.com/medicore/clinic-platform/internal/timeline"
	"github.com/medicore/clinic-platform/pkg/logging"
)

func main() {
	// Local development reads a .env file; deployments set real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	sqlDB := stdlib.OpenDBFromPool(pool)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}
	timelineCache := timeline.NewCache(redisClient, cfg.TimelineCacheTTL, logger)

	tmMetrics := metrics.NewTimelineMetrics(nil)
	enrichMetrics := metrics.NewEnrichmentMetrics(nil)

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
		model = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	extractor := extract.NewClient(cfg.ExtractorBaseURL,
		extract.WithTimeout(cfg.ExtractorTimeout),
		extract.WithLogger(logger),
	)

	timelineSvc := timeline.NewService(timeline.NewPGStore(pool), logger,
		timeline.WithCache(timelineCache),
		timeline.WithMetrics(tmMetrics),
	)
	patientRepo := patient.NewRepository(sqlDB)
	audit := compliance.NewAuditService(sqlDB)

	summaryStore := aisummary.NewStore(pool)
	generator := aisummary.NewGenerator(aisummary.NewPGSource(pool), model, summaryStore, logger, cfg.LLMTimeout)

	notifier := notify.NewService(buildEmailSender(cfg, awsCfg, logger), cfg.NotifyInbox, logger)

	jobStore := labresults.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.EnrichmentJobsTable, logger)
	structurer := labresults.NewStructurer(model, logger, cfg.LLMTimeout)
	explainer := labresults.NewExplainer(model, logger, enrichMetrics, cfg.LLMTimeout, cfg.ExplanationBatchSize)
	resultStore := labresults.NewPGStore(pool)

	pipelineOpts := []labresults.PipelineOption{
		labresults.WithTimelineCache(timelineCache),
		labresults.WithNotifier(notifier),
		labresults.WithMetrics(enrichMetrics),
	}
	if cfg.LabDocumentsBucket != "" {
		pipelineOpts = append(pipelineOpts,
			labresults.WithDocumentStore(labresults.NewDocumentStore(s3.NewFromConfig(awsCfg), cfg.LabDocumentsBucket, logger)))
	}

	var (
		pipeline *labresults.Pipeline
		worker   *labresults.Worker
	)
	if cfg.UseMemoryQueue {
		// Development mode: the enrichment worker runs inside the API
		// process against an in-process queue.
		queue := labresults.NewMemoryQueue(64)
		pipeline = labresults.NewPipeline(extractor, structurer, explainer, resultStore, queue, jobStore, logger, pipelineOpts...)
		worker = labresults.NewWorker(pipeline, queue, jobStore, logger, labresults.WithWorkerCount(cfg.WorkerCount))
		worker.Start()
	} else {
		queue := labresults.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.EnrichmentQueueURL)
		pipeline = labresults.NewPipeline(extractor, structurer, explainer, resultStore, queue, jobStore, logger, pipelineOpts...)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		Health:             handlers.NewHealthHandler(pool, extractor, logger),
		LabResults:         handlers.NewLabResultsHandler(pipeline, jobStore, audit, logger),
		PatientOverview:    handlers.NewPatientOverviewHandler(patientRepo, timelineSvc, summaryStore, audit, logger),
		AISummary:          handlers.NewAISummaryHandler(summaryStore, generator, audit, logger),
		JobWatch:           handlers.NewJobWatchHandler(jobStore, logger),
		AdminStats:         handlers.NewAdminStatsHandler(nil, logger),
		MetricsHandler:     promhttp.Handler(),
		UploadAPIKey:       cfg.UploadAPIKey,
		UserJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		UploadRateLimit:    1,
		UploadBurst:        5,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if worker != nil {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			logger.Error("worker shutdown failed", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the outcome-email provider. Returning a nil
// interface (not a typed nil) disables notifications entirely.
func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty, notifications disabled")
			return nil
		}
		return sender
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}
