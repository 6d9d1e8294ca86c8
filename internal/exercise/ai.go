package exercise

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pitchlab/eartrain-api/internal/llm"
	"github.com/pitchlab/eartrain-api/internal/logger"
	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

const melodySystemPrompt = `You are a music tutor composing short sight-singing melodies.
Respond only with JSON matching the required schema. Every measure's note
durations must sum exactly to the beats implied by the time signature.
Use only pitches from the requested key and scale, staying between C3 and C6.`

// aiMelodyResponse mirrors the melody output schema.
type aiMelodyResponse struct {
	Measures []struct {
		Notes []struct {
			Pitch      string  `json:"pitch"`
			Duration   float64 `json:"duration"`
			IsRest     bool    `json:"is_rest"`
			IsDotted   bool    `json:"is_dotted"`
			TiedToNext bool    `json:"tied_to_next"`
		} `json:"notes"`
	} `json:"measures"`
}

// AIMelodyParams configures one externally generated melody.
type AIMelodyParams struct {
	MelodyParams
	Model   string
	Timeout time.Duration
}

// GenerateAIMelody delegates melody composition to an external
// text-generation provider and parses the structured response into a
// MelodyScore, resolving every pitch name through the catalog. The call
// runs under the configured timeout; any transport or parse failure wraps
// ErrExternalGeneration.
func (s *Service) GenerateAIMelody(ctx context.Context, provider llm.Provider, p AIMelodyParams) (score.MelodyScore, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	request, err := s.melodyGenerationRequest(p)
	if err != nil {
		return score.MelodyScore{}, err
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, request)
	if err != nil {
		logger.Error("AI melody generation failed", err, logger.Fields{
			"model": p.Model, "provider": provider.Name(),
		})
		return score.MelodyScore{}, fmt.Errorf("%w: provider call: %v", llm.ErrExternalGeneration, err)
	}

	logger.LogGenerationRequest(ctx, p.Model, time.Since(start), usageFields(resp.Usage), logger.Fields{
		"provider": provider.Name(),
	})
	s.recordTokenUsage(p.Model, resp.Usage)

	return s.parseAIMelody(resp, p)
}

// GenerateAIMelodyStream is the streaming variant of GenerateAIMelody:
// provider events are forwarded to the callback as they arrive, and the
// accumulated response is parsed the same way once the stream completes.
func (s *Service) GenerateAIMelodyStream(ctx context.Context, provider llm.Provider, p AIMelodyParams, callback llm.StreamCallback) (score.MelodyScore, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	request, err := s.melodyGenerationRequest(p)
	if err != nil {
		return score.MelodyScore{}, err
	}

	start := time.Now()
	resp, err := provider.GenerateStream(ctx, request, callback)
	if err != nil {
		logger.Error("AI melody stream failed", err, logger.Fields{
			"model": p.Model, "provider": provider.Name(),
		})
		return score.MelodyScore{}, fmt.Errorf("%w: provider stream: %v", llm.ErrExternalGeneration, err)
	}

	logger.LogGenerationRequest(ctx, p.Model, time.Since(start), usageFields(resp.Usage), logger.Fields{
		"provider": provider.Name(), "streaming": true,
	})
	s.recordTokenUsage(p.Model, resp.Usage)

	return s.parseAIMelody(resp, p)
}

// melodyGenerationRequest builds the schema-constrained provider request
// for one melody.
func (s *Service) melodyGenerationRequest(p AIMelodyParams) (*llm.GenerationRequest, error) {
	prompt, err := s.buildMelodyPrompt(p.MelodyParams)
	if err != nil {
		return nil, err
	}
	return &llm.GenerationRequest{
		Model:        p.Model,
		SystemPrompt: melodySystemPrompt,
		InputArray:   []map[string]any{{"role": "user", "content": prompt}},
		OutputSchema: &llm.OutputSchema{
			Name:        "melody",
			Description: "A short melody as measures of pitched notes",
			Schema:      llm.GetMelodyOutputSchema(),
		},
	}, nil
}

// parseAIMelody validates the raw provider output and assembles the
// resulting score.
func (s *Service) parseAIMelody(resp *llm.GenerationResponse, p AIMelodyParams) (score.MelodyScore, error) {
	var parsed aiMelodyResponse
	if err := json.Unmarshal([]byte(resp.RawOutput), &parsed); err != nil {
		logger.Error("AI melody response is not valid JSON", err, logger.Fields{
			"model": p.Model, "raw_length": len(resp.RawOutput),
		})
		return score.MelodyScore{}, fmt.Errorf("%w: malformed response", llm.ErrExternalGeneration)
	}
	if len(parsed.Measures) == 0 {
		return score.MelodyScore{}, fmt.Errorf("%w: response contains no measures", llm.ErrExternalGeneration)
	}

	return s.assembleAIMelody(parsed, p.MelodyParams)
}

// buildMelodyPrompt embeds the difficulty-permitted duration vocabulary and
// the requested musical parameters.
func (s *Service) buildMelodyPrompt(p MelodyParams) (string, error) {
	tonality, err := s.catalog.TonalityByID(p.TonalityID)
	if err != nil {
		return "", err
	}
	mode, err := s.catalog.ScaleModeByID(p.ScaleModeID)
	if err != nil {
		return "", err
	}

	durations := make([]string, 0, 6)
	for _, d := range durationVocabulary(p.Difficulty) {
		durations = append(durations, fmt.Sprintf("%g", d))
	}

	return fmt.Sprintf(
		"Compose a melody of exactly %d measures in %s time at %d BPM.\n"+
			"Key: %s %s, scale: %s.\n"+
			"Allowed note durations (in beats): %s.\n"+
			"Each measure's durations must sum to the full measure.",
		p.MeasureCount, p.TimeSignature, p.Tempo,
		tonality.Root, tonality.Quality, mode.Name,
		strings.Join(durations, ", "),
	), nil
}

// assembleAIMelody converts the parsed response into a MelodyScore. A pitch
// name the catalog cannot resolve to exactly one entry is substituted with
// the nearest valid pitch rather than dropped, so the note count the model
// produced is preserved; each substitution is logged as a data-quality
// signal.
func (s *Service) assembleAIMelody(parsed aiMelodyResponse, p MelodyParams) (score.MelodyScore, error) {
	out := score.MelodyScore{
		TimeSignature: p.TimeSignature,
		Tempo:         p.Tempo,
		Tonality:      p.TonalityID,
		ScaleMode:     p.ScaleModeID,
		IsCorrect:     true,
	}

	fallback, err := s.catalog.PitchByName("C4")
	if err != nil {
		return score.MelodyScore{}, err
	}

	group := score.MelodyGroup{}
	for _, measure := range parsed.Measures {
		m := score.MelodyMeasure{Notes: make([]score.MelodyNote, 0, len(measure.Notes))}
		for _, n := range measure.Notes {
			note := score.MelodyNote{
				Duration:   n.Duration,
				IsRest:     n.IsRest || n.Pitch == "",
				IsDotted:   n.IsDotted,
				TiedToNext: n.TiedToNext,
			}
			if !note.IsRest {
				note.Pitch = s.resolveAIPitch(n.Pitch, fallback)
			}
			m.Notes = append(m.Notes, note)
		}
		group.Measures = append(group.Measures, m)
	}
	out.Groups = []score.MelodyGroup{group}
	return out, nil
}

// resolveAIPitch maps a model-produced pitch name to a catalog pitch. An
// ambiguous match takes the first candidate; a miss substitutes the
// nearest valid pitch by letter arithmetic, falling back to middle C.
func (s *Service) resolveAIPitch(name string, fallback theory.Pitch) theory.Pitch {
	matches := s.catalog.PitchesByName(name)
	if len(matches) > 0 {
		if len(matches) > 1 {
			logger.Warn("ambiguous pitch name from AI melody", logger.Fields{
				"pitch": name, "matches": len(matches),
			})
		}
		return matches[0]
	}

	if p, ok := s.nearestPitchBySpelling(name); ok {
		logger.Warn("unresolvable pitch name from AI melody, substituting nearest", logger.Fields{
			"pitch": name, "substitute": p.Name,
		})
		return p
	}

	logger.Warn("unresolvable pitch name from AI melody, substituting default", logger.Fields{
		"pitch": name, "substitute": fallback.Name,
	})
	return fallback
}

// nearestPitchBySpelling handles spellings absent from the catalog table,
// such as Cb4 or E#5, by semitone arithmetic.
func (s *Service) nearestPitchBySpelling(name string) (theory.Pitch, bool) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return theory.Pitch{}, false
	}

	// Split trailing octave digits from the letter+accidental prefix.
	split := len(name)
	for split > 0 && name[split-1] >= '0' && name[split-1] <= '9' {
		split--
	}
	if split == 0 || split == len(name) {
		return theory.Pitch{}, false
	}

	octave := 0
	for _, c := range name[split:] {
		octave = octave*10 + int(c-'0')
	}

	letters := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	class, ok := letters[strings.ToUpper(name[:1])[0]]
	if !ok {
		return theory.Pitch{}, false
	}
	for _, mod := range name[1:split] {
		switch mod {
		case '#':
			class++
		case 'b', 'B':
			class--
		default:
			return theory.Pitch{}, false
		}
	}

	number := (octave+1)*12 + class - 20
	for number < theory.MinPitchNumber {
		number += 12
	}
	for number > theory.MaxPitchNumber {
		number -= 12
	}
	p, err := s.catalog.PitchByNumber(number)
	return p, err == nil
}

// GenerateAIMelodyQuestion is the AI-assisted counterpart of
// GenerateMelodyQuestion: external correct answer, local distractors.
func (s *Service) GenerateAIMelodyQuestion(ctx context.Context, rng *rand.Rand, provider llm.Provider, req MelodyQuestionRequest, model string, timeout time.Duration) (MelodyQuestion, error) {
	correct, err := s.GenerateAIMelody(ctx, provider, AIMelodyParams{
		MelodyParams: MelodyParams{
			Difficulty:    req.Difficulty,
			TimeSignature: req.TimeSignature,
			MeasureCount:  req.MeasureCount,
			Tempo:         req.Tempo,
			TonalityID:    req.TonalityID,
			ScaleModeID:   req.ScaleModeID,
		},
		Model:   model,
		Timeout: timeout,
	})
	if err != nil {
		return MelodyQuestion{}, err
	}
	return s.assembleMelodyQuestion(rng, correct, req), nil
}

// GenerateAIMelodyQuestionStream builds the question around a streamed
// external melody; only the correct answer streams, distractors are
// derived locally once the melody is complete.
func (s *Service) GenerateAIMelodyQuestionStream(ctx context.Context, rng *rand.Rand, provider llm.Provider, req MelodyQuestionRequest, model string, timeout time.Duration, callback llm.StreamCallback) (MelodyQuestion, error) {
	correct, err := s.GenerateAIMelodyStream(ctx, provider, AIMelodyParams{
		MelodyParams: MelodyParams{
			Difficulty:    req.Difficulty,
			TimeSignature: req.TimeSignature,
			MeasureCount:  req.MeasureCount,
			Tempo:         req.Tempo,
			TonalityID:    req.TonalityID,
			ScaleModeID:   req.ScaleModeID,
		},
		Model:   model,
		Timeout: timeout,
	}, callback)
	if err != nil {
		return MelodyQuestion{}, err
	}
	return s.assembleMelodyQuestion(rng, correct, req), nil
}

// TokenUsageFunc receives per-request token counts for metrics export.
type TokenUsageFunc func(model string, totalTokens, inputTokens, outputTokens int)

// SetTokenUsageRecorder installs a sink for provider token counts.
// Call before serving; the service does not guard the field.
func (s *Service) SetTokenUsageRecorder(fn TokenUsageFunc) {
	s.tokenUsage = fn
}

func (s *Service) recordTokenUsage(model string, usage any) {
	if s.tokenUsage == nil {
		return
	}
	fields := usageFields(usage)
	asInt := func(key string) int {
		if v, ok := fields[key].(float64); ok {
			return int(v)
		}
		return 0
	}
	s.tokenUsage(model, asInt("total_tokens"), asInt("input_tokens"), asInt("output_tokens"))
}

// usageFields normalizes provider usage payloads for logging.
func usageFields(usage any) map[string]interface{} {
	fields := map[string]interface{}{}
	raw, err := json.Marshal(usage)
	if err != nil {
		return fields
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fields
	}
	for _, key := range []string{"total_tokens", "input_tokens", "output_tokens"} {
		if v, ok := m[key]; ok {
			fields[key] = v
		}
	}
	return fields
}
