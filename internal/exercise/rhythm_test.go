package exercise

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(theory.NewCatalog())
}

func TestGenerateRhythm_MeasureSumsAreExact(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(1))

	for _, difficulty := range theory.Difficulties() {
		for _, signature := range score.TimeSignatures() {
			beats, err := score.BeatsPerMeasure(signature)
			require.NoError(t, err)

			s, err := svc.GenerateRhythm(rng, difficulty, signature, 4, 80)
			require.NoError(t, err, "%s %s", difficulty, signature)
			require.Len(t, s.Groups, 1)
			require.Len(t, s.Groups[0].Measures, 4)

			for mi, m := range s.Groups[0].Measures {
				sum := 0.0
				for _, n := range m.Notes {
					sum += n.Duration
				}
				assert.InDelta(t, beats, sum, 1e-3,
					"%s %s measure %d", difficulty, signature, mi)
			}
		}
	}
}

func TestGenerateRhythm_DottedFlagsMatchDurations(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(2))

	s, err := svc.GenerateRhythm(rng, theory.DifficultyHigh, "4/4", 8, 90)
	require.NoError(t, err)

	for _, m := range s.Groups[0].Measures {
		for _, n := range m.Notes {
			dotted := n.Duration == 1.5 || n.Duration == 0.75
			assert.Equal(t, dotted, n.IsDotted, "duration %v", n.Duration)
		}
	}
}

func TestGenerateRhythm_DifficultyVocabularies(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(3))

	allowed := map[theory.Difficulty]map[float64]bool{
		theory.DifficultyLow:    {1: true, 0.5: true},
		theory.DifficultyMedium: {1: true, 0.5: true, 0.25: true, 1.5: true},
		theory.DifficultyHigh:   {1: true, 0.5: true, 0.25: true, 0.125: true, 1.5: true, 0.75: true},
	}

	for difficulty, durations := range allowed {
		s, err := svc.GenerateRhythm(rng, difficulty, "2/4", 6, 80)
		require.NoError(t, err)
		for _, m := range s.Groups[0].Measures {
			for _, n := range m.Notes {
				assert.True(t, durations[n.Duration],
					"%s produced duration %v", difficulty, n.Duration)
			}
		}
	}
}

func TestGenerateRhythm_DefaultsAndErrors(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(4))

	// Empty signature falls back to the default
	s, err := svc.GenerateRhythm(rng, theory.DifficultyLow, "", 2, 60)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeSignature, s.TimeSignature)
	assert.True(t, s.IsCorrect)

	_, err = svc.GenerateRhythm(rng, theory.DifficultyLow, "7/8", 2, 60)
	assert.True(t, errors.Is(err, ErrUnsupportedCombination))
}

func TestGenerateMelody_PitchesComeFromScale(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(5))

	m, err := svc.GenerateMelody(rng, MelodyParams{
		Difficulty:    theory.DifficultyLow,
		TimeSignature: "3/4",
		MeasureCount:  4,
		Tempo:         80,
		TonalityID:    "C_major",
		ScaleModeID:   "natural_major",
	})
	require.NoError(t, err)
	assert.Equal(t, "C_major", m.Tonality)
	assert.Equal(t, "natural_major", m.ScaleMode)
	assert.True(t, m.IsCorrect)

	catalog := theory.NewCatalog()
	seq, err := catalog.PitchSequence("C_major", "natural_major", 4)
	require.NoError(t, err)
	inScale := map[int]bool{}
	for _, p := range seq {
		inScale[p.Number] = true
	}

	sounding := 0
	for _, n := range m.Notes() {
		if n.IsRest {
			continue
		}
		sounding++
		assert.True(t, inScale[n.Pitch.Number], "pitch %d outside scale", n.Pitch.Number)
	}
	assert.Greater(t, sounding, 0)
}

func TestGenerateMelody_DeterministicUnderSeed(t *testing.T) {
	svc := newTestService(t)
	params := MelodyParams{
		Difficulty:    theory.DifficultyMedium,
		TimeSignature: "4/4",
		MeasureCount:  4,
		Tempo:         90,
		TonalityID:    "G_major",
		ScaleModeID:   "natural_major",
	}

	first, err := svc.GenerateMelody(rand.New(rand.NewSource(42)), params)
	require.NoError(t, err)
	second, err := svc.GenerateMelody(rand.New(rand.NewSource(42)), params)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestGenerateMelody_RejectsQualityMismatch(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(6))

	_, err := svc.GenerateMelody(rng, MelodyParams{
		Difficulty:    theory.DifficultyLow,
		TimeSignature: "2/4",
		MeasureCount:  2,
		Tempo:         60,
		TonalityID:    "C_major",
		ScaleModeID:   "natural_minor",
	})
	assert.True(t, errors.Is(err, theory.ErrUnsupportedCombination))
}

func TestGenerateMelody_MeasureSumsHold(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(7))

	m, err := svc.GenerateMelody(rng, MelodyParams{
		Difficulty:    theory.DifficultyHigh,
		TimeSignature: "6/8",
		MeasureCount:  4,
		Tempo:         100,
		TonalityID:    "A_minor",
		ScaleModeID:   "harmonic_minor",
	})
	require.NoError(t, err)

	for mi, measure := range m.Groups[0].Measures {
		sum := 0.0
		for _, n := range measure.Notes {
			sum += n.Duration
		}
		assert.True(t, math.Abs(sum-6) < 1e-3, "measure %d sums to %v", mi, sum)
	}
}
