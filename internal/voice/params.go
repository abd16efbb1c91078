package voice

import "strings"

// Instrument names one of the built-in tone configurations.
type Instrument string

const (
	Piano  Instrument = "piano"
	Guitar Instrument = "guitar"
	Violin Instrument = "violin"
)

// Instruments lists the built-in instruments in display order.
var Instruments = []Instrument{Piano, Guitar, Violin}

// ParseInstrument normalizes s. The second result is false for names that
// have no preset; such instruments still round-trip but play nothing.
func ParseInstrument(s string) (Instrument, bool) {
	in := Instrument(strings.ToLower(strings.TrimSpace(s)))
	_, ok := presets[in]
	return in, ok
}

type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	}
	return "unknown"
}

// Envelope is an ADSR shape. Times are in seconds, Sustain is a 0..1 level.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

type Params struct {
	Voices     int
	MasterGain float64
	Waveform   Waveform
	Envelope   Envelope

	// Vibrato depth in semitones and rate in Hz; zero disables it.
	VibratoDepth float64
	VibratoRate  float64
}

func DefaultParams() Params {
	return Params{
		Voices:     16,
		MasterGain: 0.25,
		Waveform:   Triangle,
		Envelope:   Envelope{Attack: 0.01, Decay: 0.1, Sustain: 0.5, Release: 0.5},
	}
}

var presets = map[Instrument]Params{
	Piano: withShape(Triangle, Envelope{Attack: 0.01, Decay: 0.1, Sustain: 0.1, Release: 1}),
	Guitar: func() Params {
		p := withShape(Square, Envelope{Attack: 0.01, Decay: 0.5, Sustain: 0.2, Release: 1.2})
		p.MasterGain = 0.15 // squares are loud
		return p
	}(),
	Violin: func() Params {
		p := withShape(Sawtooth, Envelope{Attack: 0.5, Decay: 0.1, Sustain: 1, Release: 1})
		p.MasterGain = 0.18
		p.VibratoDepth = 0.12
		p.VibratoRate = 5.5
		return p
	}(),
}

func withShape(w Waveform, env Envelope) Params {
	p := DefaultParams()
	p.Waveform = w
	p.Envelope = env
	return p
}

// Preset returns the tone configuration for in. Each call returns an
// independent copy.
func Preset(in Instrument) (Params, bool) {
	p, ok := presets[in]
	return p, ok
}
