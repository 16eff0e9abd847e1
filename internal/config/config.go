package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	UseMemoryQueue bool
	WorkerCount    int

	// Upload endpoint auth (x-api-key, matching the lab upload contract)
	UploadAPIKey string
	// HMAC secret for doctor/admin JWTs
	AdminJWTSecret string

	CORSAllowedOrigins []string

	// PDF text-extraction sidecar
	ExtractorBaseURL string
	ExtractorTimeout time.Duration

	// LLM provider selection: "bedrock" or "gemini"
	LLMProvider          string
	BedrockModelID       string
	GeminiAPIKey         string
	GeminiModelID        string
	LLMTimeout           time.Duration
	ExplanationBatchSize int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EnrichmentQueueURL  string
	EnrichmentJobsTable string
	LabDocumentsBucket  string

	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	TimelineCacheTTL time.Duration

	// Email notifications for enrichment outcomes
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	// Destination inbox for enrichment outcome emails
	NotifyInbox string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		UploadAPIKey:   getEnv("UPLOAD_API_KEY", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		ExtractorBaseURL: getEnv("EXTRACTOR_BASE_URL", ""),
		ExtractorTimeout: getEnvAsDuration("EXTRACTOR_TIMEOUT", 60*time.Second),

		LLMProvider:          strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		BedrockModelID:       getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:        getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:           getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		ExplanationBatchSize: getEnvAsInt("EXPLANATION_BATCH_SIZE", 10),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EnrichmentQueueURL:  getEnv("ENRICHMENT_QUEUE_URL", ""),
		EnrichmentJobsTable: getEnv("ENRICHMENT_JOBS_TABLE", "enrichment_jobs"),
		LabDocumentsBucket:  getEnv("LAB_DOCUMENTS_BUCKET", ""),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		TimelineCacheTTL: getEnvAsDuration("TIMELINE_CACHE_TTL", 5*time.Minute),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinica"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Clinica"),
		NotifyInbox:       getEnv("NOTIFY_INBOX", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
