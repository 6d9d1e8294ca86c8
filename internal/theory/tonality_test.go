package theory

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTonalities_Catalog(t *testing.T) {
	c := NewCatalog()
	tonalities := c.Tonalities()
	require.Len(t, tonalities, 30)

	majors, minors := 0, 0
	for _, tn := range tonalities {
		switch tn.Quality {
		case QualityMajor:
			majors++
		case QualityMinor:
			minors++
		}
	}
	assert.Equal(t, 15, majors)
	assert.Equal(t, 15, minors)

	cMajor, err := c.TonalityByID("C_major")
	require.NoError(t, err)
	assert.Equal(t, "C", cMajor.Root)
	assert.Equal(t, QualityMajor, cMajor.Quality)

	// Lookup is case-insensitive
	_, err = c.TonalityByID("c_MAJOR")
	assert.NoError(t, err)

	_, err = c.TonalityByID("H_major")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScaleModes_Catalog(t *testing.T) {
	c := NewCatalog()
	modes := c.ScaleModes()
	require.Len(t, modes, 6)

	natural, err := c.ScaleModeByID("natural_major")
	require.NoError(t, err)
	assert.Equal(t, [7]int{0, 2, 4, 5, 7, 9, 11}, natural.Offsets)

	harmonic, err := c.ScaleModeByID("harmonic_minor")
	require.NoError(t, err)
	assert.Equal(t, [7]int{0, 2, 3, 5, 7, 8, 11}, harmonic.Offsets)

	melodic, err := c.ScaleModeByID("melodic_minor")
	require.NoError(t, err)
	assert.Equal(t, [7]int{0, 2, 3, 5, 7, 9, 11}, melodic.Offsets)
}

func TestScaleDegrees_QualityMismatch(t *testing.T) {
	c := NewCatalog()

	// Major tonality with a minor mode is not a supported combination
	_, err := c.ScaleDegrees("C_major", "natural_minor")
	assert.True(t, errors.Is(err, ErrUnsupportedCombination))

	_, err = c.ScaleDegrees("A_minor", "harmonic_major")
	assert.True(t, errors.Is(err, ErrUnsupportedCombination))

	degrees, err := c.ScaleDegrees("C_major", "natural_major")
	require.NoError(t, err)
	assert.Equal(t, [7]int{0, 2, 4, 5, 7, 9, 11}, degrees)
}

func TestPitchSequence_CMajor(t *testing.T) {
	c := NewCatalog()

	seq, err := c.PitchSequence("C_major", "natural_major", 4)
	require.NoError(t, err)
	require.Len(t, seq, 7)

	numbers := make([]int, len(seq))
	for i, p := range seq {
		numbers[i] = p.Number
	}
	assert.Equal(t, []int{40, 42, 44, 45, 47, 49, 51}, numbers)
	assert.Equal(t, "C4", seq[0].Name)
}

func TestPitchSequence_AMinor(t *testing.T) {
	c := NewCatalog()

	seq, err := c.PitchSequence("A_minor", "natural_minor", 4)
	require.NoError(t, err)
	require.Len(t, seq, 7)
	assert.Equal(t, "A4", seq[0].Name)

	// A4 = 49; natural minor offsets
	numbers := make([]int, len(seq))
	for i, p := range seq {
		numbers[i] = p.Number
	}
	assert.Equal(t, []int{49, 51, 52, 54, 56, 57, 59}, numbers)
}

func TestPitchSequence_EveryTonalityStaysOnKeyboard(t *testing.T) {
	c := NewCatalog()
	for _, tn := range c.Tonalities() {
		for _, mode := range c.ScaleModes() {
			if mode.Quality != tn.Quality {
				continue
			}
			for octave := 0; octave <= 8; octave++ {
				seq, err := c.PitchSequence(tn.ID, mode.ID, octave)
				require.NoError(t, err, "%s %s octave %d", tn.ID, mode.ID, octave)
				require.Len(t, seq, 7)
				for _, p := range seq {
					assert.GreaterOrEqual(t, p.Number, MinPitchNumber)
					assert.LessOrEqual(t, p.Number, MaxPitchNumber)
				}
			}
		}
	}
}

func TestOrderedSequence_Difficulties(t *testing.T) {
	c := NewCatalog()
	seq, err := c.PitchSequence("C_major", "natural_major", 4)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))

	// LOW keeps root-to-top order
	low := OrderedSequence(seq, DifficultyLow, rng)
	assert.Equal(t, seq, low)

	// MEDIUM is a rotation: same content, contiguous wrap
	medium := OrderedSequence(seq, DifficultyMedium, rng)
	assert.ElementsMatch(t, seq, medium)

	// HIGH is a permutation of the same pitches
	high := OrderedSequence(seq, DifficultyHigh, rng)
	assert.ElementsMatch(t, seq, high)

	// The input is never mutated
	assert.Equal(t, 40, seq[0].Number)
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("medium")
	require.NoError(t, err)
	assert.Equal(t, DifficultyMedium, d)

	d, err = ParseDifficulty("HIGH")
	require.NoError(t, err)
	assert.Equal(t, DifficultyHigh, d)

	_, err = ParseDifficulty("extreme")
	assert.Error(t, err)
}
