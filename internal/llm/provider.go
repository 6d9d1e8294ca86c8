package llm

import (
	"context"
	"errors"
)

// ErrExternalGeneration wraps any failure of the external generation
// collaborator: transport errors, malformed JSON, schema violations.
// Handlers surface it as a generic internal error; the raw provider
// output only ever reaches the logs.
var ErrExternalGeneration = errors.New("llm: external generation failed")

// Provider defines the interface for LLM providers.
// All providers MUST support structured output (JSON Schema) for reliable response parsing
type Provider interface {
	// Generate produces a completion with structured output.
	// The provider MUST enforce the OutputSchema to ensure valid JSON responses
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// GenerateStream produces a completion with streaming updates
	GenerateStream(ctx context.Context, request *GenerationRequest, callback StreamCallback) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model        string
	InputArray   []map[string]any
	SystemPrompt string
	// Structured output schema - REQUIRED for reliable JSON parsing
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Raw JSON text output
	Usage     any    `json:"usage"`
}

// StreamCallback is called for each streaming event
type StreamCallback func(event StreamEvent) error

// StreamEvent represents a server-sent event during streaming
type StreamEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
