package exercise

import (
	"math/rand"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

const wrongOptionCount = 3

// RhythmQuestionRequest configures one rhythm dictation question.
type RhythmQuestionRequest struct {
	Difficulty    theory.Difficulty `json:"difficulty"`
	TimeSignature string            `json:"time_signature"`
	MeasureCount  int               `json:"measures_count"`
	Tempo         int               `json:"tempo"`
}

// RhythmQuestion is a four-option rhythm dictation exercise. Exactly one
// option equals the generated correct score; CorrectAnswer is its label,
// "A" through "D".
type RhythmQuestion struct {
	CorrectAnswer string              `json:"correct_answer"`
	Options       []score.RhythmScore `json:"options"`
	Tempo         int                 `json:"tempo"`
	TimeSignature string              `json:"time_signature"`
	MeasureCount  int                 `json:"measures_count"`
	Difficulty    theory.Difficulty   `json:"difficulty"`
}

// MelodyQuestionRequest configures one melody dictation question.
type MelodyQuestionRequest struct {
	Difficulty    theory.Difficulty `json:"difficulty"`
	TimeSignature string            `json:"time_signature"`
	MeasureCount  int               `json:"measures_count"`
	Tempo         int               `json:"tempo"`
	TonalityID    string            `json:"tonality"`
	ScaleModeID   string            `json:"scale_mode"`
}

// MelodyQuestion is a four-option melody dictation exercise.
type MelodyQuestion struct {
	CorrectAnswer string              `json:"correct_answer"`
	Options       []score.MelodyScore `json:"options"`
	Tempo         int                 `json:"tempo"`
	TimeSignature string              `json:"time_signature"`
	MeasureCount  int                 `json:"measures_count"`
	Difficulty    theory.Difficulty   `json:"difficulty"`
	Tonality      string              `json:"tonality"`
	ScaleMode     string              `json:"scale_mode"`
}

// GenerateRhythmQuestion builds the correct score plus three distractors,
// shuffles the four, and labels the correct position.
func (s *Service) GenerateRhythmQuestion(rng *rand.Rand, req RhythmQuestionRequest) (RhythmQuestion, error) {
	correct, err := s.GenerateRhythm(rng, req.Difficulty, req.TimeSignature, req.MeasureCount, req.Tempo)
	if err != nil {
		return RhythmQuestion{}, err
	}

	options := append([]score.RhythmScore{correct}, s.WrongRhythms(rng, correct, wrongOptionCount)...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	label := ""
	for i, opt := range options {
		if opt.IsCorrect {
			label = string(rune('A' + i))
			break
		}
	}

	return RhythmQuestion{
		CorrectAnswer: label,
		Options:       options,
		Tempo:         req.Tempo,
		TimeSignature: req.TimeSignature,
		MeasureCount:  req.MeasureCount,
		Difficulty:    req.Difficulty,
	}, nil
}

// GenerateMelodyQuestion builds a melody question the same way.
func (s *Service) GenerateMelodyQuestion(rng *rand.Rand, req MelodyQuestionRequest) (MelodyQuestion, error) {
	correct, err := s.GenerateMelody(rng, MelodyParams{
		Difficulty:    req.Difficulty,
		TimeSignature: req.TimeSignature,
		MeasureCount:  req.MeasureCount,
		Tempo:         req.Tempo,
		TonalityID:    req.TonalityID,
		ScaleModeID:   req.ScaleModeID,
	})
	if err != nil {
		return MelodyQuestion{}, err
	}
	return s.assembleMelodyQuestion(rng, correct, req), nil
}

// assembleMelodyQuestion wraps an already-generated correct melody with
// distractors and labeling. Shared with the AI-assisted path.
func (s *Service) assembleMelodyQuestion(rng *rand.Rand, correct score.MelodyScore, req MelodyQuestionRequest) MelodyQuestion {
	options := append([]score.MelodyScore{correct}, s.WrongMelodies(rng, correct, wrongOptionCount)...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	label := ""
	for i, opt := range options {
		if opt.IsCorrect {
			label = string(rune('A' + i))
			break
		}
	}

	return MelodyQuestion{
		CorrectAnswer: label,
		Options:       options,
		Tempo:         req.Tempo,
		TimeSignature: req.TimeSignature,
		MeasureCount:  req.MeasureCount,
		Difficulty:    req.Difficulty,
		Tonality:      req.TonalityID,
		ScaleMode:     req.ScaleModeID,
	}
}
