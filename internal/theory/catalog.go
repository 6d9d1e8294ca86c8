package theory

import (
	"fmt"
	"strings"
)

// Catalog is the read-only music-theory knowledge base: the 88-key pitch
// table plus the interval-pair and chord-tone tables derived from it by
// combinatorial expansion. Build it once with NewCatalog and share it by
// pointer; it is never mutated after construction and is safe for
// concurrent readers.
type Catalog struct {
	pitches  []Pitch
	byName   map[string][]Pitch
	byNumber map[int]Pitch

	intervals     []Interval
	intervalPairs map[int][]PitchIntervalPair

	chords     []Chord
	chordTable map[string][]ChordVoicing
}

// PitchGroup is one octave's worth of keys, used by the keyboard-layout
// listing endpoints.
type PitchGroup struct {
	Name    string  `json:"name"`
	Octave  int     `json:"octave"`
	Pitches []Pitch `json:"pitches"`
}

// NewCatalog builds the full knowledge base. Deterministic and pure.
func NewCatalog() *Catalog {
	c := &Catalog{
		pitches:  buildPitches(),
		byName:   make(map[string][]Pitch),
		byNumber: make(map[int]Pitch),
	}

	for _, p := range c.pitches {
		c.byNumber[p.Number] = p
		key := strings.ToUpper(p.Name)
		c.byName[key] = append(c.byName[key], p)
		if p.Alias != "" {
			key = strings.ToUpper(p.Alias)
			c.byName[key] = append(c.byName[key], p)
		}
	}

	c.intervals = buildIntervals()
	c.intervalPairs = make(map[int][]PitchIntervalPair, len(c.intervals))
	for _, iv := range c.intervals {
		c.intervalPairs[iv.Semitones] = c.buildIntervalPairs(iv)
	}

	c.chords = buildChords()
	c.chordTable = make(map[string][]ChordVoicing, len(c.chords))
	for _, ch := range c.chords {
		c.chordTable[ch.ID] = c.buildChordVoicings(ch)
	}

	return c
}

// Pitches returns the full ascending 88-key table.
func (c *Catalog) Pitches() []Pitch {
	return c.pitches
}

// PitchByNumber returns the pitch with the given key number.
func (c *Catalog) PitchByNumber(n int) (Pitch, error) {
	p, ok := c.byNumber[n]
	if !ok {
		return Pitch{}, fmt.Errorf("pitch number %d: %w", n, ErrNotFound)
	}
	return p, nil
}

// PitchesByName returns every pitch whose canonical name or enharmonic
// alias matches, case-insensitively. May return zero, one, or more entries.
func (c *Catalog) PitchesByName(name string) []Pitch {
	return c.byName[strings.ToUpper(strings.TrimSpace(name))]
}

// PitchByName resolves a name to exactly one pitch, distinguishing a
// missing name from an ambiguous one.
func (c *Catalog) PitchByName(name string) (Pitch, error) {
	matches := c.PitchesByName(name)
	switch len(matches) {
	case 0:
		return Pitch{}, fmt.Errorf("pitch %q: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return Pitch{}, fmt.Errorf("pitch %q has %d matches: %w", name, len(matches), ErrAmbiguous)
	}
}

// PitchesInRange returns pitches with lo <= number <= hi, inclusive.
// An inverted or fully out-of-range request yields an empty slice.
func (c *Catalog) PitchesInRange(lo, hi int) []Pitch {
	if lo < MinPitchNumber {
		lo = MinPitchNumber
	}
	if hi > MaxPitchNumber {
		hi = MaxPitchNumber
	}
	if lo > hi {
		return nil
	}
	out := make([]Pitch, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, c.byNumber[n])
	}
	return out
}

// Octaves groups the keyboard by octave. When includeBlackKeys is false
// the black keys are filtered from each group.
func (c *Catalog) Octaves(includeBlackKeys bool) []PitchGroup {
	groups := make([]PitchGroup, 0, 9)
	byOctave := make(map[int][]Pitch)
	for _, p := range c.pitches {
		if !includeBlackKeys && p.IsBlackKey() {
			continue
		}
		byOctave[p.Octave()] = append(byOctave[p.Octave()], p)
	}
	for oct := 0; oct <= 8; oct++ {
		ps, ok := byOctave[oct]
		if !ok {
			continue
		}
		groups = append(groups, PitchGroup{
			Name:    fmt.Sprintf("Octave %d", oct),
			Octave:  oct,
			Pitches: ps,
		})
	}
	return groups
}
