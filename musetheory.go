// Package musetheory lays out a two-octave piano keyboard for a scale or
// chord and plays it back as an arpeggio followed by a block chord.
package musetheory

import (
	"github.com/cbegin/musetheory-go/internal/keyboard"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/theory"
	"github.com/cbegin/musetheory-go/internal/voice"
)

type (
	Event      = sequencer.Event
	KeySlot    = keyboard.KeySlot
	Instrument = voice.Instrument
	Length     = notes.Length
	Analysis   = theory.Analysis
)

// DefaultLength is a quarter note.
const DefaultLength = notes.DefaultLength

const (
	Piano  = voice.Piano
	Guitar = voice.Guitar
	Violin = voice.Violin
)

// Schedule returns the arpeggio-then-chord events for names. The instrument
// does not change the timing; it is accepted so callers can pass a play
// request through unchanged.
func Schedule(names []string, _ Instrument, length Length) []Event {
	return sequencer.Schedule(names, length)
}

// Layout returns the 25 key slots with highlighted names lit.
func Layout(highlight ...string) []KeySlot {
	return keyboard.Layout(keyboard.NewHighlightSet(highlight...))
}

// Analyze resolves a "<root> <type>" query offline.
func Analyze(query string) (Analysis, error) {
	return theory.Analyze(query)
}
