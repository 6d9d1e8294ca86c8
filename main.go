package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pitchlab/eartrain-api/internal/api"
	"github.com/pitchlab/eartrain-api/internal/config"
	"github.com/pitchlab/eartrain-api/internal/metrics"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "eartrain-api@" + releaseVersion,         // Use embedded release version
			EnableTracing:    true,                                     // Enable tracing for spans
			TracesSampleRate: 1.0,                                      // 100% sampling for now, adjust based on volume
			EnableLogs:       true,                                     // Enable Sentry Logs feature
			Debug:            cfg.Environment != environmentProduction, // Enable debug in non-prod
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			// Flush on shutdown
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Build the pitch knowledge base
	catalog := theory.NewCatalog()
	log.Printf("🎹 Pitch catalog ready (%d pitches, %d intervals, %d chords)",
		len(catalog.Pitches()), len(catalog.Intervals()), len(catalog.Chords()))

	// Initialize CloudWatch metrics (no-op outside production)
	cwMetrics, err := metrics.NewClient(context.Background(), cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := api.SetupRouter(catalog, cfg, cwMetrics, GetVersion())

	// Start server
	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
