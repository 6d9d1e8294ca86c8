package exercise

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/llm"
	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

// stubProvider returns a canned response (or error) without any network I/O.
type stubProvider struct {
	output  string
	err     error
	lastReq *llm.GenerationRequest
}

func (p *stubProvider) Generate(_ context.Context, req *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerationResponse{
		RawOutput: p.output,
		Usage:     map[string]any{"total_tokens": 120, "input_tokens": 90, "output_tokens": 30},
	}, nil
}

func (p *stubProvider) GenerateStream(ctx context.Context, req *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
	if callback != nil && p.err == nil {
		_ = callback(llm.StreamEvent{Type: "started", Message: "Starting generation..."})
		_ = callback(llm.StreamEvent{Type: "text_delta", Message: p.output})
		_ = callback(llm.StreamEvent{Type: "completed", Message: "Generation complete"})
	}
	return p.Generate(ctx, req)
}

func (p *stubProvider) Name() string { return "stub" }

const twoMeasureMelodyJSON = `{
  "measures": [
    {"notes": [
      {"pitch": "C4", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false},
      {"pitch": "E4", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false}
    ]},
    {"notes": [
      {"pitch": "G4", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false},
      {"pitch": "", "duration": 1, "is_rest": true, "is_dotted": false, "tied_to_next": false}
    ]}
  ]
}`

func aiParams() AIMelodyParams {
	return AIMelodyParams{
		MelodyParams: MelodyParams{
			Difficulty:    theory.DifficultyLow,
			TimeSignature: "2/4",
			MeasureCount:  2,
			Tempo:         80,
			TonalityID:    "C_major",
			ScaleModeID:   "natural_major",
		},
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}
}

func TestGenerateAIMelody_AssemblesScore(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}

	melody, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.NoError(t, err)

	assert.Equal(t, "2/4", melody.TimeSignature)
	assert.Equal(t, 80, melody.Tempo)
	assert.Equal(t, "C_major", melody.Tonality)
	assert.Equal(t, "natural_major", melody.ScaleMode)
	assert.True(t, melody.IsCorrect)

	require.Len(t, melody.Groups, 1)
	require.Len(t, melody.Groups[0].Measures, 2)

	first := melody.Groups[0].Measures[0].Notes
	require.Len(t, first, 2)
	assert.Equal(t, "C4", first[0].Pitch.Name)
	assert.Equal(t, 40, first[0].Pitch.Number)
	assert.Equal(t, "E4", first[1].Pitch.Name)

	second := melody.Groups[0].Measures[1].Notes
	require.Len(t, second, 2)
	assert.Equal(t, "G4", second[0].Pitch.Name)
	assert.True(t, second[1].IsRest)

	// The request carried the structured-output schema and a user prompt.
	require.NotNil(t, provider.lastReq)
	require.NotNil(t, provider.lastReq.OutputSchema)
	assert.Equal(t, "melody", provider.lastReq.OutputSchema.Name)
	assert.Equal(t, "gpt-4o-mini", provider.lastReq.Model)
	require.Len(t, provider.lastReq.InputArray, 1)
	assert.NotEmpty(t, provider.lastReq.SystemPrompt)
}

func TestGenerateAIMelody_EmptyPitchBecomesRest(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: `{"measures":[{"notes":[
		{"pitch": "", "duration": 2, "is_rest": false, "is_dotted": false, "tied_to_next": false}
	]}]}`}

	melody, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.NoError(t, err)
	require.Len(t, melody.Groups[0].Measures, 1)
	require.Len(t, melody.Groups[0].Measures[0].Notes, 1)
	assert.True(t, melody.Groups[0].Measures[0].Notes[0].IsRest)
}

func TestGenerateAIMelody_ResolvesEnharmonicSpellings(t *testing.T) {
	svc := newTestService(t)
	// Cb4 and E#4 are not catalog spellings; they resolve by semitone
	// arithmetic to B3 and F4.
	provider := &stubProvider{output: `{"measures":[{"notes":[
		{"pitch": "Cb4", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false},
		{"pitch": "E#4", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false}
	]}]}`}

	melody, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.NoError(t, err)

	notes := melody.Groups[0].Measures[0].Notes
	require.Len(t, notes, 2)
	assert.Equal(t, "B3", notes[0].Pitch.Name)
	assert.Equal(t, "F4", notes[1].Pitch.Name)
}

func TestGenerateAIMelody_GibberishPitchFallsBackToMiddleC(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: `{"measures":[{"notes":[
		{"pitch": "triangle", "duration": 1, "is_rest": false, "is_dotted": false, "tied_to_next": false}
	]}]}`}

	melody, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.NoError(t, err)
	assert.Equal(t, "C4", melody.Groups[0].Measures[0].Notes[0].Pitch.Name)
}

func TestGenerateAIMelody_ProviderErrorWrapsSentinel(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{err: errors.New("connection refused")}

	_, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrExternalGeneration)
}

func TestGenerateAIMelody_MalformedJSONWrapsSentinel(t *testing.T) {
	svc := newTestService(t)

	for _, output := range []string{"not json at all", `{"measures": []}`} {
		provider := &stubProvider{output: output}
		_, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
		require.Error(t, err, "output %q", output)
		assert.ErrorIs(t, err, llm.ErrExternalGeneration)
	}
}

func TestGenerateAIMelody_UnknownTonalityFailsBeforeProviderCall(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}

	p := aiParams()
	p.TonalityID = "H_major"
	_, err := svc.GenerateAIMelody(context.Background(), provider, p)
	require.Error(t, err)
	assert.Nil(t, provider.lastReq)
}

func TestGenerateAIMelodyStream_ForwardsEventsAndAssembles(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}

	var events []llm.StreamEvent
	melody, err := svc.GenerateAIMelodyStream(context.Background(), provider, aiParams(), func(event llm.StreamEvent) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "started", events[0].Type)
	assert.Equal(t, "text_delta", events[1].Type)
	assert.Equal(t, "completed", events[2].Type)

	require.Len(t, melody.Groups, 1)
	require.Len(t, melody.Groups[0].Measures, 2)
	assert.Equal(t, "C4", melody.Groups[0].Measures[0].Notes[0].Pitch.Name)
}

func TestGenerateAIMelodyStream_ProviderErrorWrapsSentinel(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{err: errors.New("stream reset")}

	_, err := svc.GenerateAIMelodyStream(context.Background(), provider, aiParams(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrExternalGeneration)
}

func TestGenerateAIMelodyQuestionStream_FourOptions(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}
	rng := rand.New(rand.NewSource(11))

	var eventTypes []string
	q, err := svc.GenerateAIMelodyQuestionStream(context.Background(), rng, provider, MelodyQuestionRequest{
		Difficulty:    theory.DifficultyLow,
		TimeSignature: "2/4",
		MeasureCount:  2,
		Tempo:         80,
		TonalityID:    "C_major",
		ScaleModeID:   "natural_major",
	}, "gpt-4o-mini", 5*time.Second, func(event llm.StreamEvent) error {
		eventTypes = append(eventTypes, event.Type)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, q.Options, 4)
	assert.Contains(t, eventTypes, "text_delta")
}

func TestService_RecordsTokenUsage(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}

	type usage struct {
		model                string
		total, input, output int
	}
	var got []usage
	svc.SetTokenUsageRecorder(func(model string, totalTokens, inputTokens, outputTokens int) {
		got = append(got, usage{model, totalTokens, inputTokens, outputTokens})
	})

	_, err := svc.GenerateAIMelody(context.Background(), provider, aiParams())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "gpt-4o-mini", got[0].model)
	assert.Equal(t, 120, got[0].total)
	assert.Equal(t, 90, got[0].input)
	assert.Equal(t, 30, got[0].output)
}

func TestGenerateAIMelodyQuestion_FourOptionsOneCorrect(t *testing.T) {
	svc := newTestService(t)
	provider := &stubProvider{output: twoMeasureMelodyJSON}
	rng := rand.New(rand.NewSource(7))

	q, err := svc.GenerateAIMelodyQuestion(context.Background(), rng, provider, MelodyQuestionRequest{
		Difficulty:    theory.DifficultyLow,
		TimeSignature: "2/4",
		MeasureCount:  2,
		Tempo:         80,
		TonalityID:    "C_major",
		ScaleModeID:   "natural_major",
	}, "gpt-4o-mini", 5*time.Second)
	require.NoError(t, err)
	require.Len(t, q.Options, 4)

	correctIdx := -1
	var correct score.MelodyScore
	for i, opt := range q.Options {
		if opt.IsCorrect {
			require.Equal(t, -1, correctIdx)
			correctIdx = i
			correct = opt
		}
	}
	require.NotEqual(t, -1, correctIdx)
	assert.Equal(t, string(rune('A'+correctIdx)), q.CorrectAnswer)
	assert.Equal(t, "C_major", q.Tonality)

	// The externally composed melody survives as the correct option.
	require.Len(t, correct.Groups, 1)
	assert.Equal(t, "C4", correct.Groups[0].Measures[0].Notes[0].Pitch.Name)
}
