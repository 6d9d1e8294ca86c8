package exercise

import (
	"math/rand"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

// defaultAnchorOctave anchors scale roots around middle C.
const defaultAnchorOctave = 4

// MelodyParams configures one melody generation.
type MelodyParams struct {
	Difficulty    theory.Difficulty
	TimeSignature string
	MeasureCount  int
	Tempo         int
	TonalityID    string
	ScaleModeID   string
}

// GenerateMelody composes a rhythm skeleton with a scale pitch sequence:
// the skeleton comes from GenerateRhythm, then every non-rest position in
// playing order takes seq[i mod len(seq)], cycling across measure
// boundaries. Rhythmic structure and pitch content are deliberately
// decoupled; under a fixed rng the result is reproducible.
func (s *Service) GenerateMelody(rng *rand.Rand, p MelodyParams) (score.MelodyScore, error) {
	skeleton, err := s.GenerateRhythm(rng, p.Difficulty, p.TimeSignature, p.MeasureCount, p.Tempo)
	if err != nil {
		return score.MelodyScore{}, err
	}

	seq, err := s.catalog.PitchSequence(p.TonalityID, p.ScaleModeID, defaultAnchorOctave)
	if err != nil {
		return score.MelodyScore{}, err
	}
	seq = theory.OrderedSequence(seq, p.Difficulty, rng)

	melody := score.MelodyScore{
		TimeSignature: p.TimeSignature,
		Tempo:         p.Tempo,
		Tonality:      p.TonalityID,
		ScaleMode:     p.ScaleModeID,
		IsCorrect:     true,
	}

	noteIndex := 0
	for _, g := range skeleton.Groups {
		group := score.MelodyGroup{Measures: make([]score.MelodyMeasure, 0, len(g.Measures))}
		for _, m := range g.Measures {
			measure := score.MelodyMeasure{Notes: make([]score.MelodyNote, 0, len(m.Notes))}
			for _, n := range m.Notes {
				note := score.MelodyNote{
					Duration:   n.Duration,
					IsRest:     n.IsRest,
					IsDotted:   n.IsDotted,
					TiedToNext: n.TiedToNext,
				}
				if !n.IsRest {
					note.Pitch = seq[noteIndex%len(seq)]
					noteIndex++
				}
				measure.Notes = append(measure.Notes, note)
			}
			group.Measures = append(group.Measures, measure)
		}
		melody.Groups = append(melody.Groups, group)
	}
	return melody, nil
}
