package exercise

import (
	"fmt"
	"math/rand"

	"github.com/pitchlab/eartrain-api/internal/score"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

// Default question counts for the composite exam, matching the settings
// the client presents.
const (
	defaultSingleCount   = 5
	defaultGroupCount    = 5
	defaultIntervalCount = 5
	defaultChordCount    = 5
	defaultGroupSize = 3

	// standaloneQuestionCount applies when a standalone single or
	// group exam request omits the count.
	standaloneQuestionCount = 20
)

// SinglePitchQuestion asks the user to identify one pitch.
type SinglePitchQuestion struct {
	Pitch theory.Pitch `json:"pitch"`
}

// GroupPitchQuestion asks the user to identify a short pitch group.
type GroupPitchQuestion struct {
	Pitches []theory.Pitch `json:"pitches"`
}

// IntervalQuestion asks the user to identify a harmonic interval.
type IntervalQuestion struct {
	Interval theory.Interval          `json:"interval"`
	Pair     theory.PitchIntervalPair `json:"pair"`
}

// ChordQuestion asks the user to identify a chord and its inversion.
type ChordQuestion struct {
	Chord     theory.Chord   `json:"chord"`
	Root      theory.Pitch   `json:"root"`
	Inversion int            `json:"inversion"`
	Tones     []theory.Pitch `json:"tones"`
}

// ExamSettings enumerates every configuration value the catalogs support,
// for a caller building an exam request.
type ExamSettings struct {
	PitchRange      [2]int              `json:"pitch_range"`
	BlackKeyOptions []bool              `json:"black_key_options"`
	GroupSizes      []int               `json:"group_sizes"`
	Intervals       []theory.Interval   `json:"intervals"`
	Chords          []theory.Chord      `json:"chords"`
	Difficulties    []theory.Difficulty `json:"difficulties"`
	TimeSignatures  []string            `json:"time_signatures"`
	MeasureCounts   []int               `json:"measure_counts"`
	TempoRange      [2]int              `json:"tempo_range"`
	Tonalities      []theory.Tonality   `json:"tonalities"`
	ScaleModes      []theory.ScaleMode  `json:"scale_modes"`
}

// ExamRequest configures a composite exam.
type ExamRequest struct {
	PitchLow         int               `json:"pitch_low"`
	PitchHigh        int               `json:"pitch_high"`
	IncludeBlackKeys bool              `json:"include_black_keys"`
	GroupSize        int               `json:"group_size"`
	IntervalIDs      []int             `json:"interval_ids"`
	ChordIDs         []string          `json:"chord_ids"`
	Difficulty       theory.Difficulty `json:"difficulty"`
	TimeSignature    string            `json:"time_signature"`
	MeasureCount     int               `json:"measures_count"`
	Tempo            int               `json:"tempo"`
	TonalityID       string            `json:"tonality"`
	ScaleModeID      string            `json:"scale_mode"`
}

// Exam is the composite response: every exercise type in one call.
type Exam struct {
	SinglePitch []SinglePitchQuestion `json:"single_pitch_questions"`
	GroupPitch  []GroupPitchQuestion  `json:"group_pitch_questions"`
	Intervals   []IntervalQuestion    `json:"interval_questions"`
	Chords      []ChordQuestion       `json:"chord_questions"`
	Rhythm      RhythmQuestion        `json:"rhythm_question"`
	Melody      MelodyQuestion        `json:"melody_question"`
}

// Settings reports the full supported configuration space.
func (s *Service) Settings() ExamSettings {
	counts := make([]int, 0, 13)
	for n := 4; n <= 16; n++ {
		counts = append(counts, n)
	}
	return ExamSettings{
		PitchRange:      [2]int{theory.MinPitchNumber, theory.MaxPitchNumber},
		BlackKeyOptions: []bool{false, true},
		GroupSizes:      []int{2, 3, 4, 5},
		Intervals:       s.catalog.Intervals(),
		Chords:          s.catalog.Chords(),
		Difficulties:    theory.Difficulties(),
		TimeSignatures:  score.TimeSignatures(),
		MeasureCounts:   counts,
		TempoRange:      [2]int{40, 100},
		Tonalities:      s.catalog.Tonalities(),
		ScaleModes:      s.catalog.ScaleModes(),
	}
}

// candidatePitches returns the drawable pitch pool for a range request.
func (s *Service) candidatePitches(lo, hi int, includeBlackKeys bool) []theory.Pitch {
	var pool []theory.Pitch
	for _, p := range s.catalog.PitchesInRange(lo, hi) {
		if !includeBlackKeys && p.IsBlackKey() {
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

// SingleExam draws n single-pitch questions from the range. An omitted
// count falls back to the standalone default.
func (s *Service) SingleExam(rng *rand.Rand, lo, hi int, includeBlackKeys bool, n int) ([]SinglePitchQuestion, error) {
	if n <= 0 {
		n = standaloneQuestionCount
	}
	pool := s.candidatePitches(lo, hi, includeBlackKeys)
	if len(pool) == 0 {
		return nil, fmt.Errorf("pitch range [%d,%d]: %w", lo, hi, theory.ErrNotFound)
	}
	out := make([]SinglePitchQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SinglePitchQuestion{Pitch: pool[rng.Intn(len(pool))]})
	}
	return out, nil
}

// GroupExam draws n questions of groupSize pitches each, defaulting
// the count the same way SingleExam does.
func (s *Service) GroupExam(rng *rand.Rand, lo, hi int, includeBlackKeys bool, groupSize, n int) ([]GroupPitchQuestion, error) {
	if n <= 0 {
		n = standaloneQuestionCount
	}
	pool := s.candidatePitches(lo, hi, includeBlackKeys)
	if len(pool) == 0 {
		return nil, fmt.Errorf("pitch range [%d,%d]: %w", lo, hi, theory.ErrNotFound)
	}
	if groupSize < 1 {
		groupSize = defaultGroupSize
	}
	out := make([]GroupPitchQuestion, 0, n)
	for i := 0; i < n; i++ {
		group := make([]theory.Pitch, 0, groupSize)
		for j := 0; j < groupSize; j++ {
			group = append(group, pool[rng.Intn(len(pool))])
		}
		out = append(out, GroupPitchQuestion{Pitches: group})
	}
	return out, nil
}

// IntervalExam draws n interval questions, each a random keyboard
// realization of a randomly chosen requested interval.
func (s *Service) IntervalExam(rng *rand.Rand, intervalIDs []int, n int) ([]IntervalQuestion, error) {
	if len(intervalIDs) == 0 {
		for _, iv := range s.catalog.Intervals() {
			intervalIDs = append(intervalIDs, iv.Semitones)
		}
	}
	out := make([]IntervalQuestion, 0, n)
	for i := 0; i < n; i++ {
		semitones := intervalIDs[rng.Intn(len(intervalIDs))]
		iv, err := s.catalog.IntervalBySemitones(semitones)
		if err != nil {
			return nil, err
		}
		pairs := s.catalog.IntervalPairs(semitones)
		if len(pairs) == 0 {
			return nil, fmt.Errorf("interval %d has no keyboard pairs: %w", semitones, theory.ErrOutOfRange)
		}
		out = append(out, IntervalQuestion{Interval: iv, Pair: pairs[rng.Intn(len(pairs))]})
	}
	return out, nil
}

// ChordExam draws n chord questions with random roots and inversions,
// using only the precomputed in-range voicings.
func (s *Service) ChordExam(rng *rand.Rand, chordIDs []string, withInversions bool, n int) ([]ChordQuestion, error) {
	if len(chordIDs) == 0 {
		for _, ch := range s.catalog.Chords() {
			chordIDs = append(chordIDs, ch.ID)
		}
	}
	out := make([]ChordQuestion, 0, n)
	for i := 0; i < n; i++ {
		id := chordIDs[rng.Intn(len(chordIDs))]
		ch, err := s.catalog.ChordByID(id)
		if err != nil {
			return nil, err
		}
		voicings := s.catalog.ChordVoicings(id)
		if len(voicings) == 0 {
			return nil, fmt.Errorf("chord %s has no in-range voicings: %w", id, theory.ErrOutOfRange)
		}

		// Voicings near the top of the keyboard may not admit every
		// inversion; redraw a few times before settling for root position.
		question := ChordQuestion{Chord: ch}
		for attempt := 0; attempt < 10; attempt++ {
			v := voicings[rng.Intn(len(voicings))]
			level := 0
			if withInversions {
				level = rng.Intn(len(v.Tones))
			}
			tones, err := s.catalog.Invert(v.Tones, level)
			if err != nil {
				continue
			}
			question.Root = v.Root
			question.Inversion = level
			question.Tones = tones
			break
		}
		if question.Tones == nil {
			v := voicings[rng.Intn(len(voicings))]
			question.Root = v.Root
			question.Inversion = 0
			question.Tones = v.Tones
		}
		out = append(out, question)
	}
	return out, nil
}

// GenerateExam assembles the composite exam: five questions of each
// catalog type plus one rhythm and one melody dictation.
func (s *Service) GenerateExam(rng *rand.Rand, req ExamRequest) (Exam, error) {
	var exam Exam
	var err error

	exam.SinglePitch, err = s.SingleExam(rng, req.PitchLow, req.PitchHigh, req.IncludeBlackKeys, defaultSingleCount)
	if err != nil {
		return Exam{}, fmt.Errorf("single pitch questions: %w", err)
	}
	exam.GroupPitch, err = s.GroupExam(rng, req.PitchLow, req.PitchHigh, req.IncludeBlackKeys, req.GroupSize, defaultGroupCount)
	if err != nil {
		return Exam{}, fmt.Errorf("group pitch questions: %w", err)
	}
	exam.Intervals, err = s.IntervalExam(rng, req.IntervalIDs, defaultIntervalCount)
	if err != nil {
		return Exam{}, fmt.Errorf("interval questions: %w", err)
	}
	exam.Chords, err = s.ChordExam(rng, req.ChordIDs, true, defaultChordCount)
	if err != nil {
		return Exam{}, fmt.Errorf("chord questions: %w", err)
	}

	exam.Rhythm, err = s.GenerateRhythmQuestion(rng, RhythmQuestionRequest{
		Difficulty:    req.Difficulty,
		TimeSignature: req.TimeSignature,
		MeasureCount:  req.MeasureCount,
		Tempo:         req.Tempo,
	})
	if err != nil {
		return Exam{}, fmt.Errorf("rhythm question: %w", err)
	}
	exam.Melody, err = s.GenerateMelodyQuestion(rng, MelodyQuestionRequest{
		Difficulty:    req.Difficulty,
		TimeSignature: req.TimeSignature,
		MeasureCount:  req.MeasureCount,
		Tempo:         req.Tempo,
		TonalityID:    req.TonalityID,
		ScaleModeID:   req.ScaleModeID,
	})
	if err != nil {
		return Exam{}, fmt.Errorf("melody question: %w", err)
	}
	return exam, nil
}
