package exercise

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

func TestGenerateRhythmQuestion_ExactlyOneCorrectOption(t *testing.T) {
	svc := newTestService(t)

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		q, err := svc.GenerateRhythmQuestion(rng, RhythmQuestionRequest{
			Difficulty:    theory.DifficultyMedium,
			TimeSignature: "2/4",
			MeasureCount:  4,
			Tempo:         80,
		})
		require.NoError(t, err)
		require.Len(t, q.Options, 4)

		correctIdx := -1
		for i, opt := range q.Options {
			if opt.IsCorrect {
				require.Equal(t, -1, correctIdx, "seed %d has multiple correct options", seed)
				correctIdx = i
			}
		}
		require.NotEqual(t, -1, correctIdx, "seed %d has no correct option", seed)

		// Label points at the correct option
		assert.Equal(t, string(rune('A'+correctIdx)), q.CorrectAnswer)

		// The correct option differs from every distractor
		for i, opt := range q.Options {
			if i == correctIdx {
				continue
			}
			assert.False(t, opt.Equal(q.Options[correctIdx]), "seed %d option %d duplicates correct", seed, i)
		}
	}
}

func TestGenerateMelodyQuestion_ExactlyOneCorrectOption(t *testing.T) {
	svc := newTestService(t)

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		q, err := svc.GenerateMelodyQuestion(rng, MelodyQuestionRequest{
			Difficulty:    theory.DifficultyLow,
			TimeSignature: "3/4",
			MeasureCount:  4,
			Tempo:         70,
			TonalityID:    "F_major",
			ScaleModeID:   "natural_major",
		})
		require.NoError(t, err)
		require.Len(t, q.Options, 4)
		assert.Equal(t, "F_major", q.Tonality)

		correctCount := 0
		correctIdx := -1
		for i, opt := range q.Options {
			if opt.IsCorrect {
				correctCount++
				correctIdx = i
			}
		}
		assert.Equal(t, 1, correctCount)
		assert.Equal(t, string(rune('A'+correctIdx)), q.CorrectAnswer)
	}
}

func TestGenerateMelodyQuestion_CarriesRequestMetadata(t *testing.T) {
	svc := newTestService(t)
	rng := rand.New(rand.NewSource(3))

	q, err := svc.GenerateMelodyQuestion(rng, MelodyQuestionRequest{
		Difficulty:    theory.DifficultyHigh,
		TimeSignature: "6/8",
		MeasureCount:  5,
		Tempo:         95,
		TonalityID:    "B_minor",
		ScaleModeID:   "natural_minor",
	})
	require.NoError(t, err)

	assert.Equal(t, "6/8", q.TimeSignature)
	assert.Equal(t, 5, q.MeasureCount)
	assert.Equal(t, 95, q.Tempo)
	assert.Equal(t, theory.DifficultyHigh, q.Difficulty)
	assert.Equal(t, "natural_minor", q.ScaleMode)

	for _, opt := range q.Options {
		assert.Equal(t, 5, opt.MeasureCount())
	}
}
