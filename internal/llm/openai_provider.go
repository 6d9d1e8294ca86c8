package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	userRole      = "user"
	developerRole = "developer"

	providerNameOpenAI = "openai"

	maxLogEventCountOpenAI = 5
	maxOutputTrunc         = 200
)

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate implements non-streaming generation using OpenAI's Responses API
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", "openai")

	params := p.buildRequestParams(request)

	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client.Responses.New(ctx, params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	textOutput := p.extractAndCleanTextOutput(resp)
	log.Printf("📥 OPENAI RESPONSE: output_length=%d, output_items=%d, tokens=%d, preview=%s",
		len(textOutput), len(resp.Output), resp.Usage.TotalTokens, truncate(textOutput, maxOutputTrunc))

	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any output text")
	}

	p.logUsageStats(resp.Usage)
	log.Printf("✅ OPENAI GENERATION COMPLETED in %v", time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     resp.Usage,
	}, nil
}

// buildRequestParams converts GenerationRequest to OpenAI-specific ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := responses.ResponseInputParam{}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		var roleEnum responses.EasyInputMessageRole
		switch role {
		case developerRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		case userRole:
			roleEnum = responses.EasyInputMessageRoleUser
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems,
			responses.ResponseInputItemParamOfMessage(content, roleEnum),
		)
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
		Instructions: openai.String(request.SystemPrompt),
	}

	if request.OutputSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				request.OutputSchema.Name,
				request.OutputSchema.Schema,
			),
		}
		log.Printf("📋 JSON SCHEMA CONFIGURED: %s", request.OutputSchema.Name)
	}

	return params
}

// extractAndCleanTextOutput extracts and cleans text output from response
func (p *OpenAIProvider) extractAndCleanTextOutput(resp *responses.Response) string {
	textOutput := resp.OutputText()

	if textOutput == "" {
		return ""
	}

	// Strip markdown code blocks
	cleaned := strings.TrimPrefix(textOutput, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned != textOutput {
		log.Printf("🧹 Stripped markdown code blocks from output: %d -> %d chars", len(textOutput), len(cleaned))
	}

	return cleaned
}

// logUsageStats logs token usage statistics
func (p *OpenAIProvider) logUsageStats(usage responses.ResponseUsage) {
	log.Printf("📊 USAGE: input=%d, output=%d, total=%d",
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
}

// truncate truncates a string to maxLen characters
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// GenerateStream implements streaming generation using OpenAI's Responses API.
// It streams text chunks as they arrive and calls the callback for each chunk
func (p *OpenAIProvider) GenerateStream(
	ctx context.Context,
	request *GenerationRequest,
	callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI STREAMING GENERATION REQUEST STARTED (Model: %s)", request.Model)

	transaction := sentry.StartTransaction(ctx, "openai.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", "openai")
	transaction.SetTag("streaming", "true")

	params := p.buildRequestParams(request)

	if callback != nil {
		_ = callback(StreamEvent{Type: "started", Message: "Starting generation..."})
	}

	span := transaction.StartChild("openai.api_stream")
	stream := p.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var accumulatedText string
	var finalResponse *responses.Response
	eventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventCount++

		if eventCount <= maxLogEventCountOpenAI {
			log.Printf("📥 Stream event #%d: type=%s", eventCount, event.Type)
		}

		switch event.Type {
		case "response.output_text.delta":
			textDelta := event.AsResponseOutputTextDelta()
			delta := textDelta.Delta
			if delta != "" {
				accumulatedText += delta
				if callback != nil {
					_ = callback(StreamEvent{
						Type:    "text_delta",
						Message: delta,
						Data: map[string]interface{}{
							"accumulated_length": len(accumulatedText),
						},
					})
				}
			}

		case "response.output_text.done":
			log.Printf("✅ Text output complete: %d chars accumulated", len(accumulatedText))

		case "response.completed":
			completedEvent := event.AsResponseCompleted()
			finalResponse = &completedEvent.Response
			log.Printf("✅ Response completed")

		case "response.failed":
			failedEvent := event.AsResponseFailed()
			log.Printf("❌ Stream failed: %s", failedEvent.Response.Error.Message)
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("streaming failed: %s", failedEvent.Response.Error.Message)

		case "error":
			errorEvent := event.AsError()
			log.Printf("❌ Stream error: %s", errorEvent.Message)
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("stream error: %s", errorEvent.Message)
		}

		// Send periodic heartbeat
		if eventCount%50 == 0 {
			elapsed := time.Since(startTime)
			if callback != nil {
				_ = callback(StreamEvent{
					Type:    "heartbeat",
					Message: "Processing...",
					Data: map[string]interface{}{
						"events_received": eventCount,
						"elapsed_seconds": int(elapsed.Seconds()),
					},
				})
			}
		}
	}

	span.Finish()

	if err := stream.Err(); err != nil {
		log.Printf("❌ Stream error: %v", err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("stream error: %w", err)
	}

	duration := time.Since(startTime)
	log.Printf("✅ OPENAI STREAMING COMPLETE: %d events, %d chars, %v duration, preview=%s",
		eventCount, len(accumulatedText), duration, truncate(accumulatedText, maxOutputTrunc))

	if callback != nil {
		_ = callback(StreamEvent{
			Type:    "completed",
			Message: "Generation complete",
			Data: map[string]interface{}{
				"total_length": len(accumulatedText),
				"event_count":  eventCount,
			},
		})
	}

	response := &GenerationResponse{
		RawOutput: accumulatedText,
	}

	if finalResponse != nil {
		response.Usage = finalResponse.Usage
		p.logUsageStats(finalResponse.Usage)
	}

	transaction.SetTag("success", "true")
	return response, nil
}
