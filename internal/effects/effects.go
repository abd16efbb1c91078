// Package effects holds the stereo processors on the mixer's master bus.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain runs effects in order.
type Chain []Effector

func (c Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c Chain) Reset() {
	for _, e := range c {
		e.Reset()
	}
}

// MasterBus is the default bus: a gentle compressor so stacked chord tones
// don't clip, then a small room.
func MasterBus(sampleRate int) Chain {
	return Chain{
		NewCompressor(sampleRate, CompressorSettings{
			ThresholdDB: -12,
			Ratio:       3,
			AttackMs:    5,
			ReleaseMs:   120,
		}),
		NewRoom(sampleRate, RoomSettings{Size: 0.4, Decay: 0.6, Wet: 0.15}),
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
