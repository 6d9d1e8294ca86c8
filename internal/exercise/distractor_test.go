package exercise

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

func TestWrongRhythms_PairwiseDistinct(t *testing.T) {
	svc := newTestService(t)

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		correct, err := svc.GenerateRhythm(rng, theory.DifficultyMedium, "3/4", 4, 80)
		require.NoError(t, err)

		wrongs := svc.WrongRhythms(rng, correct, 3)
		require.Len(t, wrongs, 3, "seed %d", seed)

		for i, w := range wrongs {
			assert.False(t, w.IsCorrect)
			assert.False(t, w.Equal(correct), "seed %d wrong %d equals correct", seed, i)
			for j := i + 1; j < len(wrongs); j++ {
				assert.False(t, w.Equal(wrongs[j]),
					"seed %d wrongs %d and %d equal", seed, i, j)
			}
		}
	}
}

func TestWrongRhythms_DoNotMutateCorrect(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(11))

	correct, err := svc.GenerateRhythm(rng, theory.DifficultyLow, "2/4", 2, 60)
	require.NoError(t, err)
	snapshot := correct.Clone()

	svc.WrongRhythms(rng, correct, 3)
	assert.True(t, correct.Equal(snapshot))
	assert.True(t, correct.IsCorrect)
}

func TestWrongMelodies_PairwiseDistinct(t *testing.T) {
	svc := newTestService(t)

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		correct, err := svc.GenerateMelody(rng, MelodyParams{
			Difficulty:    theory.DifficultyMedium,
			TimeSignature: "4/4",
			MeasureCount:  4,
			Tempo:         80,
			TonalityID:    "D_major",
			ScaleModeID:   "natural_major",
		})
		require.NoError(t, err)

		wrongs := svc.WrongMelodies(rng, correct, 3)
		require.Len(t, wrongs, 3, "seed %d", seed)

		for i, w := range wrongs {
			assert.False(t, w.IsCorrect)
			assert.False(t, w.Equal(correct), "seed %d wrong %d equals correct", seed, i)
			for j := i + 1; j < len(wrongs); j++ {
				assert.False(t, w.Equal(wrongs[j]),
					"seed %d wrongs %d and %d equal", seed, i, j)
			}
		}
	}
}

func TestWrongMelodies_PitchesStayOnKeyboard(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(13))

	correct, err := svc.GenerateMelody(rng, MelodyParams{
		Difficulty:    theory.DifficultyHigh,
		TimeSignature: "3/8",
		MeasureCount:  6,
		Tempo:         90,
		TonalityID:    "Eb_minor",
		ScaleModeID:   "melodic_minor",
	})
	require.NoError(t, err)

	for _, w := range svc.WrongMelodies(rng, correct, 3) {
		for _, n := range w.Notes() {
			if n.IsRest {
				continue
			}
			assert.GreaterOrEqual(t, n.Pitch.Number, theory.MinPitchNumber)
			assert.LessOrEqual(t, n.Pitch.Number, theory.MaxPitchNumber)
		}
	}
}

func TestRestNthNoteFallbackDistinctness(t *testing.T) {
	// A minimal one-note score exhausts the random strategies quickly;
	// the fallback must still deliver distinct options.
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(17))

	correct := score.RhythmScore{
		TimeSignature: "2/4",
		Tempo:         60,
		IsCorrect:     true,
		Groups: []score.MeasureGroup{{
			Measures: []score.Measure{
				{Notes: []score.RhythmNote{{Duration: 1}, {Duration: 1}}},
				{Notes: []score.RhythmNote{{Duration: 1}, {Duration: 1}}},
			},
		}},
	}

	wrongs := svc.WrongRhythms(rng, correct, 3)
	require.Len(t, wrongs, 3)
	for i, w := range wrongs {
		assert.False(t, w.Equal(correct))
		for j := i + 1; j < len(wrongs); j++ {
			assert.False(t, w.Equal(wrongs[j]))
		}
	}
}
