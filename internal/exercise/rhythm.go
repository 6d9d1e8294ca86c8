package exercise

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

// DefaultTimeSignature is substituted by callers when a requested
// combination has no authored template table.
const DefaultTimeSignature = "2/4"

// maxTemplatesPerTable bounds the backtracking expansion per
// (difficulty, signature) pair. The sum-exact property holds for every
// template regardless of where the cap cuts the enumeration.
const maxTemplatesPerTable = 2000

// durationVocabulary returns the permitted note durations per difficulty,
// in beat units. 1 is a quarter note under x/4 signatures and an eighth
// note under x/8; 1.5 and 0.75 are the dotted values.
func durationVocabulary(d theory.Difficulty) []float64 {
	switch d {
	case theory.DifficultyLow:
		return []float64{1, 0.5}
	case theory.DifficultyMedium:
		return []float64{1, 0.5, 0.25, 1.5}
	case theory.DifficultyHigh:
		return []float64{1, 0.5, 0.25, 0.125, 1.5, 0.75}
	}
	return nil
}

func isDottedDuration(d float64) bool {
	return d == 1.5 || d == 0.75
}

type templateKey struct {
	difficulty theory.Difficulty
	signature  string
}

// Service generates exercises against a shared read-only catalog.
// Construct once with NewService and use from any number of goroutines;
// per-call randomness comes from the *rand.Rand the caller passes in.
type Service struct {
	catalog    *theory.Catalog
	templates  map[templateKey][][]float64
	tokenUsage TokenUsageFunc
}

// NewService builds the rhythm template tables for the full supported
// difficulty × time-signature product.
func NewService(catalog *theory.Catalog) *Service {
	s := &Service{
		catalog:   catalog,
		templates: make(map[templateKey][][]float64),
	}
	for _, d := range theory.Difficulties() {
		for _, ts := range score.TimeSignatures() {
			beats, err := score.BeatsPerMeasure(ts)
			if err != nil {
				continue
			}
			s.templates[templateKey{d, ts}] = enumerateTemplates(beats, durationVocabulary(d), maxTemplatesPerTable)
		}
	}
	return s
}

// Catalog exposes the shared knowledge base.
func (s *Service) Catalog() *theory.Catalog {
	return s.catalog
}

// enumerateTemplates backtracks over the duration vocabulary collecting
// ordered sequences that sum exactly to beats, stopping at the cap.
func enumerateTemplates(beats float64, durations []float64, limit int) [][]float64 {
	var templates [][]float64
	var current []float64

	var backtrack func(remaining float64)
	backtrack = func(remaining float64) {
		if len(templates) >= limit {
			return
		}
		if math.Abs(remaining) < 1e-3 {
			templates = append(templates, append([]float64(nil), current...))
			return
		}
		if remaining < 0 {
			return
		}
		for _, d := range durations {
			if d > remaining+1e-9 {
				continue
			}
			current = append(current, d)
			backtrack(remaining - d)
			current = current[:len(current)-1]
			if len(templates) >= limit {
				return
			}
		}
	}
	backtrack(beats)
	return templates
}

// GenerateRhythm produces a correct rhythm score: one uniformly chosen
// sum-exact template per measure, all measures in a single group.
func (s *Service) GenerateRhythm(rng *rand.Rand, difficulty theory.Difficulty, timeSignature string, measureCount, tempo int) (score.RhythmScore, error) {
	templates, ok := s.templates[templateKey{difficulty, timeSignature}]
	if !ok || len(templates) == 0 {
		return score.RhythmScore{}, fmt.Errorf("%s at %s: %w", difficulty, timeSignature, ErrUnsupportedCombination)
	}

	measures := make([]score.Measure, 0, measureCount)
	for i := 0; i < measureCount; i++ {
		pattern := templates[rng.Intn(len(templates))]
		notes := make([]score.RhythmNote, 0, len(pattern))
		for _, d := range pattern {
			notes = append(notes, score.RhythmNote{Duration: d, IsDotted: isDottedDuration(d)})
		}
		measures = append(measures, score.Measure{Notes: notes})
	}

	return score.RhythmScore{
		Groups:        []score.MeasureGroup{{Measures: measures}},
		TimeSignature: timeSignature,
		Tempo:         tempo,
		IsCorrect:     true,
	}, nil
}
