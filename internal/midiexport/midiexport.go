// Package midiexport writes a playback schedule as a Standard MIDI File.
package midiexport

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/voice"
)

const (
	ticksPerQuarter = 960
	channel         = 0
	velocity        = 100
)

// General MIDI programs for the built-in instruments.
var programs = map[voice.Instrument]uint8{
	voice.Piano:  0,  // acoustic grand
	voice.Guitar: 24, // nylon guitar
	voice.Violin: 40,
}

type Options struct {
	BPM        float64 // 0 = notes.DefaultBPM
	Instrument voice.Instrument
	Log        logrus.FieldLogger
}

type noteEvent struct {
	tick uint32
	on   bool
	key  uint8
}

// Write encodes events as SMF format 1: a tempo track and one note track.
// Pitches that do not parse are skipped.
func Write(w io.Writer, events []sequencer.Event, opts Options) error {
	bpm := opts.BPM
	if bpm <= 0 {
		bpm = notes.DefaultBPM
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var timeline []noteEvent
	for _, ev := range events {
		d, err := ev.Length.Duration(bpm)
		if err != nil {
			return err
		}
		start := toTicks(ev.Offset, bpm)
		end := toTicks(ev.Offset+d, bpm)
		if end <= start {
			end = start + 1
		}
		for _, p := range ev.Pitches {
			key, err := notes.MIDI(p)
			if err != nil {
				log.WithError(err).WithField("pitch", p).Warn("skipping pitch in MIDI export")
				continue
			}
			timeline = append(timeline,
				noteEvent{tick: start, on: true, key: uint8(key)},
				noteEvent{tick: end, on: false, key: uint8(key)},
			)
		}
	}
	// Note-offs sort before note-ons on the same tick so repeated keys retrigger.
	sort.SliceStable(timeline, func(i, j int) bool {
		if timeline[i].tick != timeline[j].tick {
			return timeline[i].tick < timeline[j].tick
		}
		return !timeline[i].on && timeline[j].on
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	var track smf.Track
	name := string(opts.Instrument)
	if name == "" {
		name = string(voice.Piano)
	}
	track.Add(0, smf.MetaTrackSequenceName(name))
	track.Add(0, midi.ProgramChange(channel, programs[opts.Instrument]))
	var last uint32
	for _, ne := range timeline {
		delta := ne.tick - last
		last = ne.tick
		if ne.on {
			track.Add(delta, midi.NoteOn(channel, ne.key, velocity))
		} else {
			track.Add(delta, midi.NoteOff(channel, ne.key))
		}
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return fmt.Errorf("add note track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

func toTicks(d time.Duration, bpm float64) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(math.Round(d.Seconds() * bpm / 60 * ticksPerQuarter))
}
