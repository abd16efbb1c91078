// Package keyboard lays out a two-octave piano keyboard and marks which keys
// belong to a highlighted scale or chord.
package keyboard

import (
	"strings"

	"github.com/cbegin/musetheory-go/internal/notes"
)

const (
	// Octaves is the number of full octaves in the layout.
	Octaves = 2
	// SlotCount is two full octaves plus the terminal C.
	SlotCount = Octaves*len(notes.Alphabet) + 1
)

// pattern is the process-wide key sequence: the chromatic alphabet repeated
// for each octave, closed by the terminal note.
var pattern = buildPattern()

func buildPattern() []string {
	keys := make([]string, 0, SlotCount)
	for i := 0; i < Octaves; i++ {
		keys = append(keys, notes.Alphabet[:]...)
	}
	return append(keys, notes.Alphabet[0])
}

// KeySlot is one key of the layout.
type KeySlot struct {
	Index    int    `json:"index"`
	Note     string `json:"note"`
	Position int    `json:"position"` // 0..11 within the repeating unit
	Octave   int    `json:"octave"`   // relative octave, 0-based
	Raised   bool   `json:"raised"`

	Highlighted bool `json:"highlighted"`

	// Only meaningful for natural keys: whether the next key in the pattern is
	// a raised key drawn as an overlay, and whether that overlay is lit.
	HasRaisedNeighbor   bool `json:"has_raised_neighbor"`
	NeighborHighlighted bool `json:"neighbor_highlighted"`
}

// HighlightSet holds octave-free note names.
type HighlightSet map[string]struct{}

// NewHighlightSet builds a set from names, stripping octave digits and
// surrounding whitespace. Names outside the alphabet are kept; they simply
// never match a key.
func NewHighlightSet(names ...string) HighlightSet {
	s := make(HighlightSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s HighlightSet) Add(name string) {
	name = normalize(name)
	if name == "" {
		return
	}
	s[name] = struct{}{}
}

func (s HighlightSet) Remove(name string) {
	delete(s, normalize(name))
}

// Toggle flips membership of name and reports whether it is now present.
func (s HighlightSet) Toggle(name string) bool {
	if s.Contains(name) {
		s.Remove(name)
		return false
	}
	s.Add(name)
	return true
}

func (s HighlightSet) Contains(name string) bool {
	_, ok := s[normalize(name)]
	return ok
}

func normalize(name string) string {
	return notes.StripOctave(strings.TrimSpace(name))
}

// Pattern returns a copy of the key sequence.
func Pattern() []string {
	return append([]string(nil), pattern...)
}

// Layout builds every key slot and evaluates it against highlight. A nil set
// highlights nothing.
func Layout(highlight HighlightSet) []KeySlot {
	unit := len(notes.Alphabet)
	slots := make([]KeySlot, len(pattern))
	for i, note := range pattern {
		slot := KeySlot{
			Index:       i,
			Note:        note,
			Position:    i % unit,
			Octave:      i / unit,
			Raised:      notes.IsRaised(note),
			Highlighted: highlight.Contains(note),
		}
		if !slot.Raised && i+1 < len(pattern) && notes.IsRaised(pattern[i+1]) {
			slot.HasRaisedNeighbor = true
			slot.NeighborHighlighted = highlight.Contains(pattern[i+1])
		}
		slots[i] = slot
	}
	return slots
}

// Naturals returns the natural keys in left-to-right order.
func Naturals(slots []KeySlot) []KeySlot {
	out := make([]KeySlot, 0, len(slots))
	for _, s := range slots {
		if !s.Raised {
			out = append(out, s)
		}
	}
	return out
}

// Highlighted returns the lit slots.
func Highlighted(slots []KeySlot) []KeySlot {
	var out []KeySlot
	for _, s := range slots {
		if s.Highlighted {
			out = append(out, s)
		}
	}
	return out
}
