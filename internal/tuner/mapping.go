package tuner

import (
	"math"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

// Tuning status thresholds in cents of absolute deviation.
const (
	perfectCents = 5.0
	goodCents    = 10.0
	fairCents    = 20.0
)

// lowPitchLimit is the highest pitch number that still gets octave
// re-scoring: detectors frequently report low strings an octave off.
const lowPitchLimit = 15

// Reading is a single pitch measurement mapped onto the keyboard.
type Reading struct {
	Frequency    float64      `json:"frequency"`
	NearestPitch theory.Pitch `json:"nearest_pitch"`
	Cents        float64      `json:"cents"`
	Status       string       `json:"status"`
	Direction    string       `json:"direction"`
}

// centsBetween returns the signed deviation of frequency from target
// in cents.
func centsBetween(frequency, target float64) float64 {
	return 1200.0 * math.Log2(frequency/target)
}

// NearestPitch scans the keyboard for the pitch closest to the
// detected frequency in cents and classifies the deviation.
func NearestPitch(catalog *theory.Catalog, frequency float64) (Reading, error) {
	if frequency <= 0 {
		return Reading{}, ErrNoPitchDetected
	}

	pitches := catalog.Pitches()
	best := pitches[0]
	bestCents := centsBetween(frequency, best.Frequency())
	for _, p := range pitches[1:] {
		c := centsBetween(frequency, p.Frequency())
		if math.Abs(c) < math.Abs(bestCents) {
			best = p
			bestCents = c
		}
	}

	// Low pitches often trigger octave errors in the detector: if a
	// neighbor an octave away explains the frequency better after
	// folding, prefer it.
	if best.Number <= lowPitchLimit {
		for _, delta := range []int{-12, 12} {
			neighbor, err := catalog.PitchByNumber(best.Number + delta)
			if err != nil {
				continue
			}
			folded := frequency
			if delta > 0 {
				folded *= 2
			} else {
				folded /= 2
			}
			c := centsBetween(folded, neighbor.Frequency())
			if math.Abs(c) < math.Abs(bestCents) {
				best = neighbor
				bestCents = c
			}
		}
	}

	return Reading{
		Frequency:    frequency,
		NearestPitch: best,
		Cents:        bestCents,
		Status:       statusForCents(bestCents),
		Direction:    directionForCents(bestCents),
	}, nil
}

func statusForCents(cents float64) string {
	abs := math.Abs(cents)
	switch {
	case abs <= perfectCents:
		return "perfect"
	case abs <= goodCents:
		return "good"
	case abs <= fairCents:
		return "fair"
	default:
		return "poor"
	}
}

// directionForCents tells the player which way to correct. Closeness is
// the status field's job; direction only claims in_tune when the detected
// frequency sits exactly on the target.
func directionForCents(cents float64) string {
	switch {
	case cents > 0:
		return "higher"
	case cents < 0:
		return "lower"
	default:
		return "in_tune"
	}
}
