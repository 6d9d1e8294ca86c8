package theory

// Consonance classifies an interval by how stable it sounds.
type Consonance string

const (
	ConsonancePerfect   Consonance = "perfect"
	ConsonanceImperfect Consonance = "imperfect"
	ConsonanceDissonant Consonance = "dissonant"
)

// Interval is a named semitone distance. Semitones 1..12 are simple
// intervals, 13..24 their compound extensions up to the double octave.
type Interval struct {
	Semitones  int        `json:"semitones"`
	Name       string     `json:"name"`
	IsCompound bool       `json:"is_compound"`
	Consonance Consonance `json:"consonance"`
}

// PitchIntervalPair is one concrete realization of an interval on the
// keyboard: two pitches exactly Semitones apart.
type PitchIntervalPair struct {
	Lower Pitch `json:"lower"`
	Upper Pitch `json:"upper"`
}

var intervalNames = [24]string{
	"Minor Second", "Major Second", "Minor Third", "Major Third",
	"Perfect Fourth", "Tritone", "Perfect Fifth", "Minor Sixth",
	"Major Sixth", "Minor Seventh", "Major Seventh", "Perfect Octave",
	"Minor Ninth", "Major Ninth", "Minor Tenth", "Major Tenth",
	"Perfect Eleventh", "Augmented Eleventh", "Perfect Twelfth",
	"Minor Thirteenth", "Major Thirteenth", "Minor Fourteenth",
	"Major Fourteenth", "Double Octave",
}

var perfectConsonances = map[int]bool{5: true, 7: true, 12: true, 17: true, 19: true, 24: true}

var imperfectConsonances = map[int]bool{
	3: true, 4: true, 8: true, 9: true,
	15: true, 16: true, 20: true, 21: true,
}

func classifyConsonance(semitones int) Consonance {
	switch {
	case perfectConsonances[semitones]:
		return ConsonancePerfect
	case imperfectConsonances[semitones]:
		return ConsonanceImperfect
	default:
		return ConsonanceDissonant
	}
}

func buildIntervals() []Interval {
	intervals := make([]Interval, 0, len(intervalNames))
	for i, name := range intervalNames {
		semitones := i + 1
		intervals = append(intervals, Interval{
			Semitones:  semitones,
			Name:       name,
			IsCompound: semitones > 12,
			Consonance: classifyConsonance(semitones),
		})
	}
	return intervals
}

// Intervals returns the 24 named intervals in ascending semitone order.
func (c *Catalog) Intervals() []Interval {
	return c.intervals
}

// IntervalBySemitones returns the named interval for a semitone count.
func (c *Catalog) IntervalBySemitones(semitones int) (Interval, error) {
	if semitones < 1 || semitones > len(c.intervals) {
		return Interval{}, ErrNotFound
	}
	return c.intervals[semitones-1], nil
}

// IntervalPairs returns every keyboard realization of the interval:
// all (lower, upper) pitch pairs with upper.Number - lower.Number equal
// to the interval's semitone count and upper still on the keyboard.
func (c *Catalog) IntervalPairs(semitones int) []PitchIntervalPair {
	return c.intervalPairs[semitones]
}

func (c *Catalog) buildIntervalPairs(iv Interval) []PitchIntervalPair {
	pairs := make([]PitchIntervalPair, 0, MaxPitchNumber-iv.Semitones)
	for _, lower := range c.pitches {
		upper, ok := c.byNumber[lower.Number+iv.Semitones]
		if !ok {
			continue
		}
		pairs = append(pairs, PitchIntervalPair{Lower: lower, Upper: upper})
	}
	return pairs
}
