// Package sequencer turns an ordered list of note names into timed playback
// events: an arpeggio followed by one block chord.
package sequencer

import (
	"time"

	"github.com/cbegin/musetheory-go/internal/notes"
)

// DefaultStep is the spacing between arpeggio notes, half of a one-second
// reference beat.
const DefaultStep = 500 * time.Millisecond

// Event is one trigger of one or more pitches.
type Event struct {
	Pitches []string      `json:"pitches"`
	Offset  time.Duration `json:"offset"`
	Length  notes.Length  `json:"length"`
	Chord   bool          `json:"chord"`
}

type Options struct {
	Step          time.Duration // 0 = DefaultStep
	DefaultOctave *int          // nil = notes.DefaultOctave
}

// Schedule arranges names as an arpeggio at i*DefaultStep followed by a chord
// of every pitch at N*DefaultStep + DefaultStep.
func Schedule(names []string, length notes.Length) []Event {
	return ScheduleWithOptions(names, length, Options{})
}

func ScheduleWithOptions(names []string, length notes.Length, opts Options) []Event {
	if len(names) == 0 {
		return nil
	}
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}
	octave := notes.DefaultOctave
	if opts.DefaultOctave != nil {
		octave = *opts.DefaultOctave
	}
	if length == "" {
		length = notes.DefaultLength
	}

	pitches := make([]string, len(names))
	for i, n := range names {
		pitches[i] = notes.ResolveOctave(n, octave)
	}

	events := make([]Event, 0, len(pitches)+1)
	for i, p := range pitches {
		events = append(events, Event{
			Pitches: []string{p},
			Offset:  time.Duration(i) * step,
			Length:  length,
		})
	}
	events = append(events, Event{
		Pitches: pitches,
		Offset:  time.Duration(len(pitches))*step + step,
		Length:  length,
		Chord:   true,
	})
	return events
}

// End returns the offset at which the last event stops sounding when every
// event lasts d. Release tails are not included.
func End(events []Event, d time.Duration) time.Duration {
	var end time.Duration
	for _, ev := range events {
		if e := ev.Offset + d; e > end {
			end = e
		}
	}
	return end
}
