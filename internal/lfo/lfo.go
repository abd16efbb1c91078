// Package lfo provides a low-frequency oscillator for per-sample modulation
// such as vibrato.
package lfo

import "math"

type Shape int

const (
	Sine Shape = iota
	Triangle
	Square
	Saw
)

// LFO is shared by every voice of an engine, so all notes wobble in phase.
type LFO struct {
	depth  float64
	rateHz float64
	shape  Shape
	phase  float64 // [0, 1)
}

// New returns an LFO with the given depth, rate and shape.
func New(depth, rateHz float64, shape Shape) LFO {
	var l LFO
	l.Set(depth, rateHz, shape)
	return l
}

func (l *LFO) Set(depth, rateHz float64, shape Shape) {
	if shape < Sine || shape > Saw {
		shape = Sine
	}
	l.depth = depth
	l.rateHz = rateHz
	l.shape = shape
}

// Sample returns the current value in [-depth, +depth] and advances one
// sample. It returns 0 while inactive.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	var v float64
	switch l.shape {
	case Triangle:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	case Square:
		v = 1
		if l.phase >= 0.5 {
			v = -1
		}
	case Saw:
		v = 1 - 2*l.phase
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.rateHz / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

func (l *LFO) Reset() {
	l.phase = 0
}
