// Package score holds the rhythm and melody value types shared by the
// exercise generators and the distractor engine. Scores are plain values;
// mutations always build fresh copies via Clone rather than aliasing.
package score

import (
	"fmt"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

// RhythmNote is one duration event. Duration is expressed in beat units of
// the enclosing time signature (quarter notes for x/4 signatures, eighth
// notes for x/8).
type RhythmNote struct {
	Duration   float64 `json:"duration"`
	IsRest     bool    `json:"is_rest"`
	IsDotted   bool    `json:"is_dotted"`
	TiedToNext bool    `json:"tied_to_next"`
}

// Measure is an ordered run of notes whose durations sum to the beats per
// measure of the owning score's time signature.
type Measure struct {
	Notes []RhythmNote `json:"notes"`
}

// MeasureGroup is an ordered run of measures. Generated scores carry a
// single group; the group dimension participates in score equality.
type MeasureGroup struct {
	Measures []Measure `json:"measures"`
}

// RhythmScore is a complete rhythm-dictation answer option.
type RhythmScore struct {
	Groups        []MeasureGroup `json:"measure_groups"`
	TimeSignature string         `json:"time_signature"`
	Tempo         int            `json:"tempo"`
	IsCorrect     bool           `json:"is_correct"`
}

// MelodyNote is a rhythm note with a bound pitch. Pitch is meaningless when
// IsRest is set.
type MelodyNote struct {
	Duration   float64      `json:"duration"`
	IsRest     bool         `json:"is_rest"`
	IsDotted   bool         `json:"is_dotted"`
	TiedToNext bool         `json:"tied_to_next"`
	Pitch      theory.Pitch `json:"pitch"`
}

// MelodyMeasure is an ordered run of melody notes.
type MelodyMeasure struct {
	Notes []MelodyNote `json:"notes"`
}

// MelodyGroup is an ordered run of melody measures.
type MelodyGroup struct {
	Measures []MelodyMeasure `json:"measures"`
}

// MelodyScore is a complete melody-dictation answer option.
type MelodyScore struct {
	Groups        []MelodyGroup `json:"measure_groups"`
	TimeSignature string        `json:"time_signature"`
	Tempo         int           `json:"tempo"`
	Tonality      string        `json:"tonality,omitempty"`
	ScaleMode     string        `json:"scale_mode,omitempty"`
	IsCorrect     bool          `json:"is_correct"`
}

// BeatsPerMeasure returns the duration total a measure must reach for the
// time signature, in the signature's own beat unit.
func BeatsPerMeasure(timeSignature string) (float64, error) {
	switch timeSignature {
	case "2/4":
		return 2, nil
	case "3/4":
		return 3, nil
	case "4/4":
		return 4, nil
	case "3/8":
		return 3, nil
	case "6/8":
		return 6, nil
	}
	return 0, fmt.Errorf("unknown time signature %q", timeSignature)
}

// TimeSignatures lists the supported signatures.
func TimeSignatures() []string {
	return []string{"2/4", "3/4", "4/4", "3/8", "6/8"}
}

// Clone deep copies the score.
func (s RhythmScore) Clone() RhythmScore {
	out := s
	out.Groups = make([]MeasureGroup, len(s.Groups))
	for gi, g := range s.Groups {
		measures := make([]Measure, len(g.Measures))
		for mi, m := range g.Measures {
			notes := make([]RhythmNote, len(m.Notes))
			copy(notes, m.Notes)
			measures[mi] = Measure{Notes: notes}
		}
		out.Groups[gi] = MeasureGroup{Measures: measures}
	}
	return out
}

// Clone deep copies the score.
func (s MelodyScore) Clone() MelodyScore {
	out := s
	out.Groups = make([]MelodyGroup, len(s.Groups))
	for gi, g := range s.Groups {
		measures := make([]MelodyMeasure, len(g.Measures))
		for mi, m := range g.Measures {
			notes := make([]MelodyNote, len(m.Notes))
			copy(notes, m.Notes)
			measures[mi] = MelodyMeasure{Notes: notes}
		}
		out.Groups[gi] = MelodyGroup{Measures: measures}
	}
	return out
}

// Equal reports musical equality between two rhythm scores: same group,
// measure, and note counts, and per note the same duration, rest flag, and
// dot flag. Tempo, correctness, and tie flags do not participate.
func (s RhythmScore) Equal(o RhythmScore) bool {
	if len(s.Groups) != len(o.Groups) {
		return false
	}
	for gi := range s.Groups {
		a, b := s.Groups[gi], o.Groups[gi]
		if len(a.Measures) != len(b.Measures) {
			return false
		}
		for mi := range a.Measures {
			am, bm := a.Measures[mi], b.Measures[mi]
			if len(am.Notes) != len(bm.Notes) {
				return false
			}
			for ni := range am.Notes {
				an, bn := am.Notes[ni], bm.Notes[ni]
				if an.Duration != bn.Duration || an.IsRest != bn.IsRest || an.IsDotted != bn.IsDotted {
					return false
				}
			}
		}
	}
	return true
}

// Equal reports musical equality between two melody scores: the rhythm
// equality rule plus pitch-number equality for every note.
func (s MelodyScore) Equal(o MelodyScore) bool {
	if len(s.Groups) != len(o.Groups) {
		return false
	}
	for gi := range s.Groups {
		a, b := s.Groups[gi], o.Groups[gi]
		if len(a.Measures) != len(b.Measures) {
			return false
		}
		for mi := range a.Measures {
			am, bm := a.Measures[mi], b.Measures[mi]
			if len(am.Notes) != len(bm.Notes) {
				return false
			}
			for ni := range am.Notes {
				an, bn := am.Notes[ni], bm.Notes[ni]
				if an.Duration != bn.Duration || an.IsRest != bn.IsRest || an.IsDotted != bn.IsDotted {
					return false
				}
				if an.Pitch.Number != bn.Pitch.Number {
					return false
				}
			}
		}
	}
	return true
}

// Notes flattens the score's notes in playing order.
func (s MelodyScore) Notes() []MelodyNote {
	var out []MelodyNote
	for _, g := range s.Groups {
		for _, m := range g.Measures {
			out = append(out, m.Notes...)
		}
	}
	return out
}

// MeasureCount counts measures across all groups.
func (s RhythmScore) MeasureCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Measures)
	}
	return n
}

// MeasureCount counts measures across all groups.
func (s MelodyScore) MeasureCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Measures)
	}
	return n
}
