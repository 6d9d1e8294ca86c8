package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
// Note: This is a stateless configuration - no database needed
// Auth, billing, and user management are handled by the gateway
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key

	// AI melody generation
	AIMelodyModel   string        // Model routed through the provider factory
	AIMelodyTimeout time.Duration // Per-request generation deadline

	// Tuner audio
	TunerSampleRate int // Expected sample rate of streamed audio
	TunerFrameSize  int // Samples per streamed frame

	// Observability
	SentryDSN string // Sentry DSN for error tracking

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from the gateway
	AuthMode string
}

func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AIMelodyModel:   getEnv("AI_MELODY_MODEL", "gpt-4o-mini"),
		AIMelodyTimeout: time.Duration(getEnvInt("AI_MELODY_TIMEOUT_SECONDS", 60)) * time.Second,
		TunerSampleRate: getEnvInt("TUNER_SAMPLE_RATE", 44100),
		TunerFrameSize:  getEnvInt("TUNER_FRAME_SIZE", 4096),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		AuthMode:        getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// IsGatewayMode returns true if running behind the gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}
