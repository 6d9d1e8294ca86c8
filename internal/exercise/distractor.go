package exercise

import (
	"math/rand"

	"github.com/pitchlab/eartrain-api/internal/logger"
	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

// maxDistractorAttempts caps the mutation retry loop. On exhaustion the
// engine falls back to deterministic single-note perturbations so the
// caller always receives the requested option count.
const maxDistractorAttempts = 100

// perNoteMutationChance is the per-note probability used by the
// first-hit-wins mutation strategies.
const perNoteMutationChance = 0.3

// RhythmStrategy is one rhythm mutation. It never touches its input:
// callers pass a fresh clone. The bool result is false when the score has
// no eligible mutation point for this strategy.
type RhythmStrategy int

const (
	RhythmChangeDuration RhythmStrategy = iota
	RhythmToRest
	RhythmToggleDot
	RhythmMerge
	RhythmSplit
	RhythmShiftAcrossMeasures
)

var rhythmStrategies = []RhythmStrategy{
	RhythmChangeDuration, RhythmToRest, RhythmToggleDot,
	RhythmMerge, RhythmSplit, RhythmShiftAcrossMeasures,
}

func (st RhythmStrategy) apply(s score.RhythmScore, rng *rand.Rand) (score.RhythmScore, bool) {
	if len(s.Groups) == 0 {
		return s, false
	}
	g := rng.Intn(len(s.Groups))
	group := &s.Groups[g]
	if len(group.Measures) == 0 {
		return s, false
	}
	m := rng.Intn(len(group.Measures))
	measure := &group.Measures[m]

	switch st {
	case RhythmChangeDuration:
		// Swap one note for two of half its length, keeping the measure sum.
		if len(measure.Notes) == 0 {
			return s, false
		}
		i := rng.Intn(len(measure.Notes))
		switch measure.Notes[i].Duration {
		case 1.0:
			measure.Notes[i].Duration = 0.5
			measure.Notes = insertRhythmNote(measure.Notes, i+1, score.RhythmNote{Duration: 0.5})
			return s, true
		case 2.0:
			measure.Notes[i].Duration = 1.0
			measure.Notes = insertRhythmNote(measure.Notes, i+1, score.RhythmNote{Duration: 1.0})
			return s, true
		}
		return s, false

	case RhythmToRest:
		if len(measure.Notes) == 0 {
			return s, false
		}
		i := rng.Intn(len(measure.Notes))
		if measure.Notes[i].IsRest {
			return s, false
		}
		measure.Notes[i].IsRest = true
		return s, true

	case RhythmToggleDot:
		// Dot a quarter at the expense of the following note.
		if len(measure.Notes) < 2 {
			return s, false
		}
		i := rng.Intn(len(measure.Notes) - 1)
		if measure.Notes[i].Duration == 1.0 && measure.Notes[i+1].Duration >= 0.5 {
			measure.Notes[i].Duration = 1.5
			measure.Notes[i].IsDotted = true
			measure.Notes[i+1].Duration = 0.5
			return s, true
		}
		return s, false

	case RhythmMerge:
		if len(measure.Notes) < 2 {
			return s, false
		}
		i := rng.Intn(len(measure.Notes) - 1)
		measure.Notes[i].Duration += measure.Notes[i+1].Duration
		measure.Notes = append(measure.Notes[:i+1], measure.Notes[i+2:]...)
		return s, true

	case RhythmSplit:
		if len(measure.Notes) == 0 {
			return s, false
		}
		i := rng.Intn(len(measure.Notes))
		if measure.Notes[i].Duration < 1.0 {
			return s, false
		}
		half := measure.Notes[i].Duration / 2
		measure.Notes[i].Duration = half
		measure.Notes = insertRhythmNote(measure.Notes, i+1, score.RhythmNote{Duration: half})
		return s, true

	case RhythmShiftAcrossMeasures:
		// Swap the border notes of two adjacent measures. Only meaningful
		// when their flags differ (equal durations are a precondition).
		if len(group.Measures) < 2 {
			return s, false
		}
		mi := rng.Intn(len(group.Measures) - 1)
		m1 := &group.Measures[mi]
		m2 := &group.Measures[mi+1]
		if len(m1.Notes) == 0 || len(m2.Notes) == 0 {
			return s, false
		}
		last := &m1.Notes[len(m1.Notes)-1]
		first := &m2.Notes[0]
		if last.Duration != first.Duration {
			return s, false
		}
		if last.IsRest == first.IsRest && last.IsDotted == first.IsDotted {
			return s, false
		}
		*last, *first = *first, *last
		return s, true
	}
	return s, false
}

func insertRhythmNote(notes []score.RhythmNote, i int, n score.RhythmNote) []score.RhythmNote {
	notes = append(notes, score.RhythmNote{})
	copy(notes[i+1:], notes[i:])
	notes[i] = n
	return notes
}

// WrongRhythms returns count rhythm scores, each distinct from correct and
// from one another under score equality. The retry loop is bounded; on
// exhaustion the deterministic rest-perturbation fallback fills the rest.
func (s *Service) WrongRhythms(rng *rand.Rand, correct score.RhythmScore, count int) []score.RhythmScore {
	options := make([]score.RhythmScore, 0, count)
	for attempts := 0; len(options) < count && attempts < maxDistractorAttempts; attempts++ {
		st := rhythmStrategies[rng.Intn(len(rhythmStrategies))]
		candidate, ok := st.apply(correct.Clone(), rng)
		if !ok {
			continue
		}
		candidate.IsCorrect = false
		if rhythmDistinct(candidate, correct, options) {
			options = append(options, candidate)
		}
	}

	if len(options) < count {
		logger.Warn("distractor retries exhausted, using fallback", logger.Fields{
			"kind": "rhythm", "have": len(options), "want": count,
		})
	}
	for noteIdx := 0; len(options) < count; noteIdx++ {
		fallback := correct.Clone()
		fallback.IsCorrect = false
		if !restNthNote(&fallback, noteIdx) {
			// Every note is already a rest; give up on variety.
			options = append(options, fallback)
			continue
		}
		if rhythmDistinct(fallback, correct, options) {
			options = append(options, fallback)
		}
	}
	return options
}

// restNthNote turns the nth note (in playing order) into a rest.
func restNthNote(s *score.RhythmScore, n int) bool {
	idx := 0
	for gi := range s.Groups {
		for mi := range s.Groups[gi].Measures {
			notes := s.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if idx == n {
					if notes[ni].IsRest {
						return false
					}
					notes[ni].IsRest = true
					return true
				}
				idx++
			}
		}
	}
	return false
}

func rhythmDistinct(candidate, correct score.RhythmScore, existing []score.RhythmScore) bool {
	if candidate.Equal(correct) {
		return false
	}
	for _, e := range existing {
		if candidate.Equal(e) {
			return false
		}
	}
	return true
}

// MelodyStrategy is one melody mutation, applied to a fresh clone.
type MelodyStrategy int

const (
	MelodyScaleSwap MelodyStrategy = iota
	MelodyTonalitySwap
	MelodyAccidentalPerturb
	MelodyOctaveShift
	MelodyNoteReorder
	MelodyMeasureReorder
	MelodyRhythmShift
)

var melodyStrategies = []MelodyStrategy{
	MelodyScaleSwap, MelodyTonalitySwap, MelodyAccidentalPerturb,
	MelodyOctaveShift, MelodyNoteReorder, MelodyMeasureReorder,
	MelodyRhythmShift,
}

// rhythmShiftDurations is the replacement pool for MelodyRhythmShift.
var rhythmShiftDurations = []float64{0.5, 1, 1.5, 2}

func (s *Service) applyMelodyStrategy(st MelodyStrategy, m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	switch st {
	case MelodyScaleSwap:
		return s.reassignPitches(m, rng, m.Tonality, otherScaleMode(s.catalog, m, rng))
	case MelodyTonalitySwap:
		return s.reassignPitches(m, rng, otherTonality(s.catalog, m, rng), m.ScaleMode)
	case MelodyAccidentalPerturb:
		return perturbPitch(s.catalog, m, rng)
	case MelodyOctaveShift:
		return shiftOctave(s.catalog, m, rng)
	case MelodyNoteReorder:
		return reorderNotes(m, rng)
	case MelodyMeasureReorder:
		return reorderMeasures(m, rng)
	case MelodyRhythmShift:
		return shiftRhythm(m, rng)
	}
	return m, false
}

// otherScaleMode picks a different mode of the same quality.
func otherScaleMode(catalog *theory.Catalog, m score.MelodyScore, rng *rand.Rand) string {
	current, err := catalog.ScaleModeByID(m.ScaleMode)
	if err != nil {
		return m.ScaleMode
	}
	var candidates []string
	for _, mode := range catalog.ScaleModes() {
		if mode.Quality == current.Quality && mode.ID != current.ID {
			candidates = append(candidates, mode.ID)
		}
	}
	if len(candidates) == 0 {
		return m.ScaleMode
	}
	return candidates[rng.Intn(len(candidates))]
}

// otherTonality picks a different key of the same quality.
func otherTonality(catalog *theory.Catalog, m score.MelodyScore, rng *rand.Rand) string {
	current, err := catalog.TonalityByID(m.Tonality)
	if err != nil {
		return m.Tonality
	}
	var candidates []string
	for _, t := range catalog.Tonalities() {
		if t.Quality == current.Quality && t.ID != current.ID {
			candidates = append(candidates, t.ID)
		}
	}
	if len(candidates) == 0 {
		return m.Tonality
	}
	return candidates[rng.Intn(len(candidates))]
}

// reassignPitches rebuilds the pitch assignment from a different
// tonality/mode pair, keeping the rhythm skeleton.
func (s *Service) reassignPitches(m score.MelodyScore, rng *rand.Rand, tonalityID, modeID string) (score.MelodyScore, bool) {
	if tonalityID == m.Tonality && modeID == m.ScaleMode {
		return m, false
	}
	seq, err := s.catalog.PitchSequence(tonalityID, modeID, defaultAnchorOctave)
	if err != nil {
		return m, false
	}
	noteIndex := 0
	changed := false
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if notes[ni].IsRest {
					continue
				}
				p := seq[noteIndex%len(seq)]
				if p.Number != notes[ni].Pitch.Number {
					changed = true
				}
				notes[ni].Pitch = p
				noteIndex++
			}
		}
	}
	if changed {
		m.Tonality = tonalityID
		m.ScaleMode = modeID
	}
	return m, changed
}

// perturbPitch replaces, with per-note probability, one non-rest note's
// pitch with a random higher pitch; first hit wins.
func perturbPitch(catalog *theory.Catalog, m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if notes[ni].IsRest || rng.Float64() >= perNoteMutationChance {
					continue
				}
				lo := notes[ni].Pitch.Number + 1
				if lo > theory.MaxPitchNumber {
					continue
				}
				n := lo + rng.Intn(theory.MaxPitchNumber-lo+1)
				p, err := catalog.PitchByNumber(n)
				if err != nil {
					continue
				}
				notes[ni].Pitch = p
				return m, true
			}
		}
	}
	return m, false
}

// shiftOctave moves one non-rest note up or down an octave; first hit wins.
func shiftOctave(catalog *theory.Catalog, m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if notes[ni].IsRest || rng.Float64() >= perNoteMutationChance {
					continue
				}
				delta := 12
				if rng.Intn(2) == 0 {
					delta = -12
				}
				p, err := catalog.PitchByNumber(notes[ni].Pitch.Number + delta)
				if err != nil {
					p, err = catalog.PitchByNumber(notes[ni].Pitch.Number - delta)
				}
				if err != nil {
					continue
				}
				notes[ni].Pitch = p
				return m, true
			}
		}
	}
	return m, false
}

// reorderNotes swaps two non-rest pitches within the first measure
// holding at least two non-rest notes.
func reorderNotes(m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			var sounding []int
			for ni := range notes {
				if !notes[ni].IsRest {
					sounding = append(sounding, ni)
				}
			}
			if len(sounding) < 2 {
				continue
			}
			i := sounding[rng.Intn(len(sounding))]
			j := sounding[rng.Intn(len(sounding))]
			for j == i {
				j = sounding[rng.Intn(len(sounding))]
			}
			if notes[i].Pitch.Number == notes[j].Pitch.Number {
				return m, false
			}
			notes[i].Pitch, notes[j].Pitch = notes[j].Pitch, notes[i].Pitch
			return m, true
		}
	}
	return m, false
}

// reorderMeasures swaps two whole measures within a group of at least two.
func reorderMeasures(m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	for gi := range m.Groups {
		measures := m.Groups[gi].Measures
		if len(measures) < 2 {
			continue
		}
		i := rng.Intn(len(measures))
		j := rng.Intn(len(measures))
		for j == i {
			j = rng.Intn(len(measures))
		}
		measures[i], measures[j] = measures[j], measures[i]
		return m, true
	}
	return m, false
}

// shiftRhythm replaces one non-rest note's duration from a fixed pool;
// first hit wins.
func shiftRhythm(m score.MelodyScore, rng *rand.Rand) (score.MelodyScore, bool) {
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if notes[ni].IsRest || rng.Float64() >= perNoteMutationChance {
					continue
				}
				d := rhythmShiftDurations[rng.Intn(len(rhythmShiftDurations))]
				if d == notes[ni].Duration {
					continue
				}
				notes[ni].Duration = d
				notes[ni].IsDotted = isDottedDuration(d)
				return m, true
			}
		}
	}
	return m, false
}

// WrongMelodies returns count melody scores, each distinct from correct
// and from one another. Bounded retries, then the deterministic
// next-higher-pitch fallback.
func (s *Service) WrongMelodies(rng *rand.Rand, correct score.MelodyScore, count int) []score.MelodyScore {
	options := make([]score.MelodyScore, 0, count)
	for attempts := 0; len(options) < count && attempts < maxDistractorAttempts; attempts++ {
		st := melodyStrategies[rng.Intn(len(melodyStrategies))]
		candidate, ok := s.applyMelodyStrategy(st, correct.Clone(), rng)
		if !ok {
			continue
		}
		candidate.IsCorrect = false
		if melodyDistinct(candidate, correct, options) {
			options = append(options, candidate)
		}
	}

	if len(options) < count {
		logger.Warn("distractor retries exhausted, using fallback", logger.Fields{
			"kind": "melody", "have": len(options), "want": count,
		})
	}
	for noteIdx := 0; len(options) < count; noteIdx++ {
		fallback := correct.Clone()
		fallback.IsCorrect = false
		if !raiseNthPitch(s.catalog, &fallback, noteIdx) {
			options = append(options, fallback)
			continue
		}
		if melodyDistinct(fallback, correct, options) {
			options = append(options, fallback)
		}
	}
	return options
}

// raiseNthPitch moves the nth sounding note (in playing order) up one
// semitone, or down when already at the top of the keyboard.
func raiseNthPitch(catalog *theory.Catalog, m *score.MelodyScore, n int) bool {
	idx := 0
	for gi := range m.Groups {
		for mi := range m.Groups[gi].Measures {
			notes := m.Groups[gi].Measures[mi].Notes
			for ni := range notes {
				if notes[ni].IsRest {
					continue
				}
				if idx == n {
					p, err := catalog.PitchByNumber(notes[ni].Pitch.Number + 1)
					if err != nil {
						p, err = catalog.PitchByNumber(notes[ni].Pitch.Number - 1)
					}
					if err != nil {
						return false
					}
					notes[ni].Pitch = p
					return true
				}
				idx++
			}
		}
	}
	return false
}

func melodyDistinct(candidate, correct score.MelodyScore, existing []score.MelodyScore) bool {
	if candidate.Equal(correct) {
		return false
	}
	for _, e := range existing {
		if candidate.Equal(e) {
			return false
		}
	}
	return true
}
