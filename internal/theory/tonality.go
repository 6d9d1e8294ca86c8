package theory

import (
	"fmt"
	"math/rand"
	"strings"
)

// Difficulty tiers shared by exercise generation and scale ordering.
type Difficulty string

const (
	DifficultyLow    Difficulty = "LOW"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHigh   Difficulty = "HIGH"
)

// Difficulties lists the supported tiers in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyLow, DifficultyMedium, DifficultyHigh}
}

// ParseDifficulty resolves a difficulty string case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(s))) {
	case DifficultyLow:
		return DifficultyLow, nil
	case DifficultyMedium:
		return DifficultyMedium, nil
	case DifficultyHigh:
		return DifficultyHigh, nil
	}
	return "", fmt.Errorf("difficulty %q: %w", s, ErrNotFound)
}

// Quality is the major/minor classification of a tonality or scale mode.
type Quality string

const (
	QualityMajor Quality = "major"
	QualityMinor Quality = "minor"
)

// Tonality is a musical key: a root note spelling plus a quality.
// The catalog carries 15 major and 15 minor keys, the full circle of
// fifths including enharmonic duplicates.
type Tonality struct {
	ID      string  `json:"id"`
	Root    string  `json:"root"`
	Quality Quality `json:"quality"`
}

// ScaleMode is a named 7-degree semitone-offset pattern from the scale root.
type ScaleMode struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Quality Quality `json:"quality"`
	Offsets [7]int  `json:"offsets"`
}

var majorRoots = []string{"C", "G", "D", "A", "E", "B", "F#", "C#", "F", "Bb", "Eb", "Ab", "Db", "Gb", "Cb"}
var minorRoots = []string{"A", "E", "B", "F#", "C#", "G#", "D#", "A#", "D", "G", "C", "F", "Bb", "Eb", "Ab"}

func buildTonalities() []Tonality {
	out := make([]Tonality, 0, len(majorRoots)+len(minorRoots))
	for _, r := range majorRoots {
		out = append(out, Tonality{ID: r + "_major", Root: r, Quality: QualityMajor})
	}
	for _, r := range minorRoots {
		out = append(out, Tonality{ID: r + "_minor", Root: r, Quality: QualityMinor})
	}
	return out
}

func buildScaleModes() []ScaleMode {
	return []ScaleMode{
		{ID: "natural_major", Name: "Natural Major", Quality: QualityMajor, Offsets: [7]int{0, 2, 4, 5, 7, 9, 11}},
		{ID: "harmonic_major", Name: "Harmonic Major", Quality: QualityMajor, Offsets: [7]int{0, 2, 4, 5, 7, 8, 11}},
		{ID: "melodic_major", Name: "Melodic Major", Quality: QualityMajor, Offsets: [7]int{0, 2, 4, 5, 7, 8, 10}},
		{ID: "natural_minor", Name: "Natural Minor", Quality: QualityMinor, Offsets: [7]int{0, 2, 3, 5, 7, 8, 10}},
		{ID: "harmonic_minor", Name: "Harmonic Minor", Quality: QualityMinor, Offsets: [7]int{0, 2, 3, 5, 7, 8, 11}},
		{ID: "melodic_minor", Name: "Melodic Minor", Quality: QualityMinor, Offsets: [7]int{0, 2, 3, 5, 7, 9, 11}},
	}
}

var tonalities = buildTonalities()
var scaleModes = buildScaleModes()

// Tonalities returns the 30 supported keys.
func (c *Catalog) Tonalities() []Tonality {
	return tonalities
}

// TonalityByID looks up one tonality.
func (c *Catalog) TonalityByID(id string) (Tonality, error) {
	for _, t := range tonalities {
		if strings.EqualFold(t.ID, id) {
			return t, nil
		}
	}
	return Tonality{}, fmt.Errorf("tonality %q: %w", id, ErrNotFound)
}

// ScaleModes returns the 6 supported scale-mode patterns.
func (c *Catalog) ScaleModes() []ScaleMode {
	return scaleModes
}

// ScaleModeByID looks up one scale mode.
func (c *Catalog) ScaleModeByID(id string) (ScaleMode, error) {
	for _, m := range scaleModes {
		if strings.EqualFold(m.ID, id) {
			return m, nil
		}
	}
	return ScaleMode{}, fmt.Errorf("scale mode %q: %w", id, ErrNotFound)
}

// ScaleDegrees returns the 7 semitone offsets of the mode applied to the
// tonality. The mode's quality must match the tonality's.
func (c *Catalog) ScaleDegrees(tonalityID, modeID string) ([7]int, error) {
	t, err := c.TonalityByID(tonalityID)
	if err != nil {
		return [7]int{}, err
	}
	m, err := c.ScaleModeByID(modeID)
	if err != nil {
		return [7]int{}, err
	}
	if t.Quality != m.Quality {
		return [7]int{}, fmt.Errorf("%s with %s: %w", tonalityID, modeID, ErrUnsupportedCombination)
	}
	return m.Offsets, nil
}

// noteLetterOffsets maps natural note letters to semitone classes with C = 0.
var noteLetterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// rootSemitone resolves a root spelling such as "F#" or "Cb" to a semitone
// class 0..11.
func rootSemitone(root string) (int, error) {
	if root == "" {
		return 0, fmt.Errorf("empty root: %w", ErrNotFound)
	}
	base, ok := noteLetterOffsets[root[0]]
	if !ok {
		return 0, fmt.Errorf("root %q: %w", root, ErrNotFound)
	}
	for _, mod := range root[1:] {
		switch mod {
		case '#':
			base++
		case 'b':
			base--
		default:
			return 0, fmt.Errorf("root %q: %w", root, ErrNotFound)
		}
	}
	return ((base % 12) + 12) % 12, nil
}

// PitchSequence resolves the tonality's root at the anchor octave and walks
// the mode's offsets, yielding the 7 scale-degree pitches in ascending
// order. Spellings absent from the catalog (Cb, E#, double accidentals)
// resolve by semitone arithmetic; a root or degree that would leave the
// keyboard is pulled back inside by whole octaves. The result is always a
// valid sequence for a supported tonality/mode pair.
func (c *Catalog) PitchSequence(tonalityID, modeID string, anchorOctave int) ([]Pitch, error) {
	t, err := c.TonalityByID(tonalityID)
	if err != nil {
		return nil, err
	}
	offsets, err := c.ScaleDegrees(tonalityID, modeID)
	if err != nil {
		return nil, err
	}

	rootNumber := 0
	if candidates := c.PitchesByName(fmt.Sprintf("%s%d", t.Root, anchorOctave)); len(candidates) > 0 {
		rootNumber = candidates[0].Number
	} else {
		class, err := rootSemitone(t.Root)
		if err != nil {
			return nil, err
		}
		// midi = (octave+1)*12 + class; key number = midi - 20
		rootNumber = (anchorOctave+1)*12 + class - 20
	}
	for rootNumber < MinPitchNumber {
		rootNumber += 12
	}
	for rootNumber+offsets[6] > MaxPitchNumber {
		rootNumber -= 12
	}

	seq := make([]Pitch, 0, len(offsets))
	for _, off := range offsets {
		n := rootNumber + off
		for n > MaxPitchNumber {
			n -= 12
		}
		for n < MinPitchNumber {
			n += 12
		}
		seq = append(seq, c.byNumber[n])
	}
	return seq, nil
}

// OrderedSequence arranges a scale sequence by difficulty: LOW keeps the
// root-to-top order, MEDIUM rotates by a random pivot, HIGH shuffles.
// Difficulty controls contour predictability, not pitch content.
func OrderedSequence(seq []Pitch, difficulty Difficulty, rng *rand.Rand) []Pitch {
	out := make([]Pitch, len(seq))
	copy(out, seq)
	if len(out) < 2 {
		return out
	}
	switch difficulty {
	case DifficultyMedium:
		pivot := rng.Intn(len(out))
		rotated := make([]Pitch, 0, len(out))
		rotated = append(rotated, out[pivot:]...)
		rotated = append(rotated, out[:pivot]...)
		out = rotated
	case DifficultyHigh:
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}
