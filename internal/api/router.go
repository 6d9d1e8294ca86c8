package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/api/handlers"
	apimiddleware "github.com/pitchlab/eartrain-api/internal/api/middleware"
	"github.com/pitchlab/eartrain-api/internal/config"
	"github.com/pitchlab/eartrain-api/internal/exercise"
	"github.com/pitchlab/eartrain-api/internal/llm"
	"github.com/pitchlab/eartrain-api/internal/metrics"
	"github.com/pitchlab/eartrain-api/internal/theory"
	"github.com/pitchlab/eartrain-api/internal/tuner"
)

func SetupRouter(catalog *theory.Catalog, cfg *config.Config, cwMetrics *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cwMetrics))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(catalog, version)
	router.GET("/health", healthHandler.HealthCheck)

	// Auth: pass-through locally, trust gateway headers when hosted
	auth := apimiddleware.NoAuth()
	if cfg.IsGatewayMode() {
		auth = apimiddleware.GatewayAuth()
	}

	// Shared services
	exerciseService := exercise.NewService(catalog)
	exerciseService.SetTokenUsageRecorder(cwMetrics.RecordTokenUsage)
	providerFactory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	analyzer := tuner.NewAnalyzer(catalog)
	sessions := tuner.NewSessions(analyzer, cfg.TunerSampleRate, cfg.TunerFrameSize)

	api := router.Group("/api")
	api.Use(auth)
	{
		// Pitch knowledge base
		pitchHandler := handlers.NewPitchHandler(catalog)
		api.GET("/pitch", pitchHandler.List)
		api.GET("/pitch/groups", pitchHandler.Groups)
		api.GET("/pitch/intervals", pitchHandler.Intervals)
		api.GET("/pitch/chords", pitchHandler.Chords)
		api.GET("/pitch/tonalities", pitchHandler.Tonalities)
		api.GET("/pitch/name/:name", pitchHandler.ByName)
		api.GET("/pitch/:number", pitchHandler.ByNumber)

		// Exams
		examHandler := handlers.NewExamHandler(exerciseService)
		api.GET("/exam/settings", examHandler.Settings)
		api.POST("/exam", examHandler.Generate)
		api.POST("/exam/single", examHandler.Single)
		api.POST("/exam/group", examHandler.Group)
		api.POST("/exam/interval", examHandler.Interval)
		api.POST("/exam/chord", examHandler.Chord)

		// Dictation questions
		rhythmHandler := handlers.NewRhythmHandler(exerciseService)
		api.POST("/rhythm/question", rhythmHandler.Question)

		melodyHandler := handlers.NewMelodyHandler(exerciseService, providerFactory, cwMetrics, cfg.AIMelodyModel, cfg.AIMelodyTimeout)
		api.POST("/melody/question", melodyHandler.Question)
		api.POST("/melody/question/stream", melodyHandler.QuestionStream)

		// Tuner
		tunerHandler := handlers.NewTunerHandler(analyzer, sessions, cwMetrics)
		api.POST("/tuner/analyze", tunerHandler.Analyze)
		api.GET("/tuner/stream", tunerHandler.Stream)
	}

	return router
}
