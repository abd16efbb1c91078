// Package voice implements the polyphonic tone source behind each instrument:
// one oscillator shape, one ADSR envelope, a fixed pool of voices.
package voice

import (
	"math"
	"sync/atomic"

	"golang.org/x/exp/constraints"

	"github.com/cbegin/musetheory-go/internal/lfo"
	"github.com/cbegin/musetheory-go/internal/notes"
)

type envStage int

const (
	envAttack envStage = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	age      int
	freq     float64
	phase    float64
	velocity float64
	env      float64
	stage    envStage
	relStep  float64
}

// Engine is not safe for concurrent use except for SetMasterGain; callers
// serialize NoteOn, NoteOff and RenderFrame.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	vibrato    lfo.LFO
	dcPrevIn   float64
	dcPrevOut  float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = DefaultParams().Voices
	}
	params.Envelope.Sustain = clamp(params.Envelope.Sustain, 0, 1)
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	e.vibrato.Set(params.VibratoDepth, params.VibratoRate, lfo.Sine)
	return e
}

func (e *Engine) Params() Params { return e.params }

// NoteOn starts a MIDI note at velocity 0..127 and returns a voice ID for
// NoteOff.
func (e *Engine) NoteOn(note int, velocity int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		freq:     notes.Frequency(note),
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		stage:    envAttack,
	}
	return id
}

// NoteOff releases the voice from its current level, so a note cut short
// during attack fades rather than jumping.
func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.stage != envRelease {
			v.stage = envRelease
			v.relStep = v.env / e.frames(e.params.Envelope.Release)
		}
	}
}

// RenderFrame mixes one stereo frame of every active voice.
func (e *Engine) RenderFrame() (float32, float32) {
	freqMul := 1.0
	if mod := e.vibrato.Sample(e.sampleRate); mod != 0 {
		freqMul = math.Pow(2, mod/12.0)
	}
	gain := e.masterGainValue()

	var out float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		out += e.renderWave(v, freqMul) * env * v.velocity * gain
	}
	out = clamp(e.dcBlock(out), -1, 1)
	return float32(out), float32(out)
}

func (e *Engine) renderWave(v *voice, freqMul float64) float64 {
	dt := v.freq * freqMul / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch e.params.Waveform {
	case Triangle:
		return 2*math.Abs(2*v.phase-1) - 1
	case Square:
		out := -1.0
		if v.phase < 0.5 {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase+0.5, 1), dt)
		return out
	case Sawtooth:
		return 2*v.phase - 1 - polyBLEP(v.phase, dt)
	default:
		return math.Sin(2 * math.Pi * v.phase)
	}
}

// polyBLEP smooths a unit step at phase 0; t is the phase, dt the increment.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) advanceEnv(v *voice) float64 {
	env := e.params.Envelope
	switch v.stage {
	case envAttack:
		v.env += 1 / e.frames(env.Attack)
		if v.env >= 1 {
			v.env = 1
			v.stage = envDecay
		}
	case envDecay:
		v.env -= (1 - env.Sustain) / e.frames(env.Decay)
		if v.env <= env.Sustain {
			v.env = env.Sustain
			v.stage = envSustain
		}
	case envSustain:
		if env.Sustain <= 0 {
			v.active = false
			v.stage = envOff
		}
	case envRelease:
		v.env -= v.relStep
		if v.env <= 0.0001 || v.relStep <= 0 {
			v.env = 0
			v.stage = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// frames converts seconds to a sample count of at least one.
func (e *Engine) frames(sec float64) float64 {
	return math.Max(1, sec*e.sampleRate)
}

// stealVoice prefers a free slot, then the oldest releasing voice, then the
// oldest voice.
func (e *Engine) stealVoice() int {
	oldestRelease, oldestReleaseAge := -1, -1
	oldest, oldestAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			return i
		}
		if v.stage == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestAge {
			oldest, oldestAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldest
}

func (e *Engine) dcBlock(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevIn + r*e.dcPrevOut
	e.dcPrevIn = x
	e.dcPrevOut = y
	return y
}

func (e *Engine) SetMasterGain(gain float64) {
	atomic.StoreUint64(&e.masterGain, math.Float64bits(math.Max(0, gain)))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
