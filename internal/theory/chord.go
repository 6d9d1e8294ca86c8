package theory

import "fmt"

// Chord is a named stack of root-relative semitone offsets: two offsets
// for a triad, three for a seventh chord.
type Chord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Intervals []int  `json:"intervals"`
}

// IsSeventh reports whether the chord stacks three intervals above the root.
func (ch Chord) IsSeventh() bool {
	return len(ch.Intervals) == 3
}

// ChordVoicing is one concrete realization of a chord: a root pitch and
// the fully stacked tone list, every tone on the keyboard.
type ChordVoicing struct {
	ChordID string  `json:"chord_id"`
	Root    Pitch   `json:"root"`
	Tones   []Pitch `json:"tones"`
}

func buildChords() []Chord {
	return []Chord{
		{ID: "major", Name: "Major Triad", Intervals: []int{4, 7}},
		{ID: "minor", Name: "Minor Triad", Intervals: []int{3, 7}},
		{ID: "diminished", Name: "Diminished Triad", Intervals: []int{3, 6}},
		{ID: "augmented", Name: "Augmented Triad", Intervals: []int{4, 8}},
		{ID: "sus2", Name: "Suspended Second", Intervals: []int{2, 7}},
		{ID: "sus4", Name: "Suspended Fourth", Intervals: []int{5, 7}},
		{ID: "dominant7", Name: "Dominant Seventh", Intervals: []int{4, 7, 10}},
		{ID: "major7", Name: "Major Seventh", Intervals: []int{4, 7, 11}},
		{ID: "minor7", Name: "Minor Seventh", Intervals: []int{3, 7, 10}},
		{ID: "halfdim7", Name: "Half-Diminished Seventh", Intervals: []int{3, 6, 10}},
	}
}

// Chords returns the chord vocabulary.
func (c *Catalog) Chords() []Chord {
	return c.chords
}

// ChordByID looks up one chord definition.
func (c *Catalog) ChordByID(id string) (Chord, error) {
	for _, ch := range c.chords {
		if ch.ID == id {
			return ch, nil
		}
	}
	return Chord{}, fmt.Errorf("chord %q: %w", id, ErrNotFound)
}

// ChordTones stacks the chord's intervals above the given root and returns
// the tone list, failing when any stacked tone would leave the keyboard.
func (c *Catalog) ChordTones(chordID string, root Pitch) ([]Pitch, error) {
	ch, err := c.ChordByID(chordID)
	if err != nil {
		return nil, err
	}
	tones := make([]Pitch, 0, len(ch.Intervals)+1)
	tones = append(tones, root)
	for _, offset := range ch.Intervals {
		n := root.Number + offset
		p, ok := c.byNumber[n]
		if !ok {
			return nil, fmt.Errorf("chord %s root %s tone %d: %w", chordID, root.Name, n, ErrOutOfRange)
		}
		tones = append(tones, p)
	}
	return tones, nil
}

// ChordVoicings returns the precomputed table of every in-range voicing
// of the chord; roots whose stack would exceed the keyboard are omitted.
func (c *Catalog) ChordVoicings(chordID string) []ChordVoicing {
	return c.chordTable[chordID]
}

func (c *Catalog) buildChordVoicings(ch Chord) []ChordVoicing {
	voicings := make([]ChordVoicing, 0, MaxPitchNumber)
	for _, root := range c.pitches {
		tones, err := c.ChordTones(ch.ID, root)
		if err != nil {
			continue
		}
		voicings = append(voicings, ChordVoicing{ChordID: ch.ID, Root: root, Tones: tones})
	}
	return voicings
}

// Invert rotates the chord tones cyclically: level 0 is root position,
// level k moves the bottom k tones up an octave. Valid levels run from 0
// to len(tones)-1; a wrapped tone leaving the keyboard is an error.
func (c *Catalog) Invert(tones []Pitch, level int) ([]Pitch, error) {
	if level < 0 || level >= len(tones) {
		return nil, fmt.Errorf("inversion level %d for %d tones: %w", level, len(tones), ErrNotFound)
	}
	out := make([]Pitch, 0, len(tones))
	out = append(out, tones[level:]...)
	for _, p := range tones[:level] {
		lifted, ok := c.byNumber[p.Number+12]
		if !ok {
			return nil, fmt.Errorf("inversion lifts %s off the keyboard: %w", p.Name, ErrOutOfRange)
		}
		out = append(out, lifted)
	}
	return out, nil
}
