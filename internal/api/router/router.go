package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medicore/clinic-platform/internal/http/handlers"
	httpmiddleware "github.com/medicore/clinic-platform/internal/http/middleware"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	Health          *handlers.HealthHandler
	LabResults      *handlers.LabResultsHandler
	PatientOverview *handlers.PatientOverviewHandler
	AISummary       *handlers.AISummaryHandler
	JobWatch        *handlers.JobWatchHandler
	AdminStats      *handlers.AdminStatsHandler
	MetricsHandler  http.Handler

	// Shared secret for the upload endpoint and internal webhooks (x-api-key)
	UploadAPIKey string
	// HMAC secret for doctor/admin JWTs
	UserJWTSecret string

	CORSAllowedOrigins []string

	// Uploads per second per IP; zero disables rate limiting
	UploadRateLimit float64
	UploadBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Machine endpoints guarded by the shared API key
	r.Group(func(machine chi.Router) {
		machine.Use(httpmiddleware.APIKey(cfg.UploadAPIKey))

		if cfg.LabResults != nil {
			if cfg.UploadRateLimit > 0 {
				machine.With(httpmiddleware.RateLimit(cfg.UploadRateLimit, cfg.UploadBurst)).
					Post("/api/lab-results", cfg.LabResults.Upload)
			} else {
				machine.Post("/api/lab-results", cfg.LabResults.Upload)
			}
			machine.Get("/api/lab-results/jobs/{jobID}", cfg.LabResults.JobStatus)
		}
		if cfg.AISummary != nil {
			machine.Post("/internal/ai-summary/refresh", cfg.AISummary.Refresh)
		}
	})

	// Staff endpoints guarded by JWT
	if cfg.UserJWTSecret != "" {
		r.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.UserJWT(cfg.UserJWTSecret))

			if cfg.PatientOverview != nil {
				staff.Route("/api/patients/{patientID}", func(p chi.Router) {
					p.Get("/overview", cfg.PatientOverview.Overview)
					p.Get("/timeline", cfg.PatientOverview.Timeline)
					if cfg.AISummary != nil {
						p.Get("/ai-summary", cfg.AISummary.Get)
					}
				})
			}
			if cfg.JobWatch != nil {
				staff.Get("/api/lab-results/watch", cfg.JobWatch.Watch)
			}
			if cfg.AdminStats != nil {
				staff.Get("/admin/stats", cfg.AdminStats.GetStats)
			}
		})
	}

	return r
}
