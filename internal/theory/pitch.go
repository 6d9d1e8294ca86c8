package theory

import (
	"fmt"
	"math"
)

// Keyboard bounds and the A4 reference used for equal-tempered frequencies.
const (
	MinPitchNumber = 1  // A0
	MaxPitchNumber = 88 // C8
	a4Number       = 49
	a4Frequency    = 440.0
)

// Pitch is one key of the 88-key equal-tempered piano. Number 1 is A0,
// number 88 is C8. Black keys carry the sharp spelling as Name and the
// flat spelling as Alias.
type Pitch struct {
	Number int    `json:"pitch_number"`
	Name   string `json:"name"`
	Alias  string `json:"alias,omitempty"`
}

// IsBlackKey reports whether the pitch has an enharmonic alias, which is
// true exactly for the five black keys of each octave.
func (p Pitch) IsBlackKey() bool {
	return p.Alias != ""
}

// Frequency returns the equal-tempered frequency in Hz, anchored at A4 = 440.
func (p Pitch) Frequency() float64 {
	return a4Frequency * math.Pow(2, float64(p.Number-a4Number)/12)
}

// MIDINote returns the MIDI note number (A0 = 21).
func (p Pitch) MIDINote() int {
	return p.Number + 20
}

// Octave returns the scientific-pitch octave of the key (A0 is octave 0,
// middle C is octave 4).
func (p Pitch) Octave() int {
	return p.MIDINote()/12 - 1
}

// PitchClass returns the semitone class 0..11 with C = 0.
func (p Pitch) PitchClass() int {
	return p.MIDINote() % 12
}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatAliases = map[string]string{
	"C#": "Db",
	"D#": "Eb",
	"F#": "Gb",
	"G#": "Ab",
	"A#": "Bb",
}

// buildPitches constructs the 88-entry pitch table in ascending order.
func buildPitches() []Pitch {
	pitches := make([]Pitch, 0, MaxPitchNumber)
	for n := MinPitchNumber; n <= MaxPitchNumber; n++ {
		midi := n + 20
		letter := sharpNames[midi%12]
		octave := midi/12 - 1

		p := Pitch{
			Number: n,
			Name:   fmt.Sprintf("%s%d", letter, octave),
		}
		if flat, ok := flatAliases[letter]; ok {
			p.Alias = fmt.Sprintf("%s%d", flat, octave)
		}
		pitches = append(pitches, p)
	}
	return pitches
}
