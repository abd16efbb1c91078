package audio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/musetheory-go/internal/effects"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/voice"
)

// DefaultVelocity is used for every triggered tone.
const DefaultVelocity = 100

// Voice is a tone source that plays pitches at engine time.
type Voice interface {
	// TriggerAttackRelease starts every pitch at engine time at and releases
	// it after length. Times in the past start immediately.
	TriggerAttackRelease(pitches []string, length time.Duration, at time.Duration) error
}

type pendingNote struct {
	frame  int64
	note   int
	length int64
}

type pendingOff struct {
	frame int64
	id    int
}

// mixerVoice is one instrument voice owned by a Mixer.
type mixerVoice struct {
	mixer   *Mixer
	engine  *voice.Engine
	pending []pendingNote // sorted by frame
	offs    []pendingOff
}

// Mixer owns the engine clock. It executes scheduled note-ons and note-offs at
// exact frames and sums every voice into interleaved stereo.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	voices     []*mixerVoice
	bus        effects.Effector
	log        logrus.FieldLogger
}

func NewMixer(sampleRate int, log logrus.FieldLogger) *Mixer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mixer{sampleRate: sampleRate, log: log}
}

// SetBus installs the master effects every summed frame passes through. Nil
// removes it.
func (m *Mixer) SetBus(bus effects.Effector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bus = bus
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// Now returns the engine time of the next frame to be rendered.
func (m *Mixer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameTime(m.frame)
}

// NewVoice adds an independent tone source with its own engine.
func (m *Mixer) NewVoice(params voice.Params) (Voice, error) {
	if m.sampleRate <= 0 {
		return nil, fmt.Errorf("mixer sample rate %d must be positive", m.sampleRate)
	}
	v := &mixerVoice{mixer: m, engine: voice.New(m.sampleRate, params)}
	m.mu.Lock()
	m.voices = append(m.voices, v)
	m.mu.Unlock()
	return v, nil
}

func (v *mixerVoice) TriggerAttackRelease(pitches []string, length time.Duration, at time.Duration) error {
	m := v.mixer
	lengthFrames := m.frames(length)
	if lengthFrames < 1 {
		lengthFrames = 1
	}
	start := m.frames(at)

	m.mu.Lock()
	defer m.mu.Unlock()
	if start < m.frame {
		start = m.frame
	}
	for _, p := range pitches {
		n, err := notes.MIDI(p)
		if err != nil {
			m.log.WithError(err).WithField("pitch", p).Warn("skipping unplayable pitch")
			continue
		}
		v.pending = append(v.pending, pendingNote{frame: start, note: n, length: lengthFrames})
	}
	sort.SliceStable(v.pending, func(i, j int) bool { return v.pending[i].frame < v.pending[j].frame })
	return nil
}

// Process fills dst with interleaved stereo frames and advances the clock.
func (m *Mixer) Process(dst []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i+1 < len(dst); i += 2 {
		var l, r float32
		for _, v := range m.voices {
			v.dispatch(m.frame)
			vl, vr := v.engine.RenderFrame()
			l += vl
			r += vr
		}
		if m.bus != nil {
			l, r = m.bus.Process(l, r)
		}
		dst[i], dst[i+1] = l, r
		m.frame++
	}
}

// dispatch fires note-offs then note-ons due at frame.
func (v *mixerVoice) dispatch(frame int64) {
	if len(v.offs) > 0 {
		kept := v.offs[:0]
		for _, off := range v.offs {
			if off.frame <= frame {
				v.engine.NoteOff(off.id)
				continue
			}
			kept = append(kept, off)
		}
		v.offs = kept
	}
	n := 0
	for n < len(v.pending) && v.pending[n].frame <= frame {
		p := v.pending[n]
		id := v.engine.NoteOn(p.note, DefaultVelocity)
		v.offs = append(v.offs, pendingOff{frame: frame + p.length, id: id})
		n++
	}
	if n > 0 {
		v.pending = append(v.pending[:0], v.pending[n:]...)
	}
}

// Idle reports whether nothing is queued and no voice is sounding.
func (m *Mixer) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		if len(v.pending) > 0 || len(v.offs) > 0 || v.engine.ActiveVoiceCount() > 0 {
			return false
		}
	}
	return true
}

func (m *Mixer) frames(d time.Duration) int64 {
	return int64(d.Seconds() * float64(m.sampleRate))
}

func (m *Mixer) frameTime(frame int64) time.Duration {
	return time.Duration(float64(frame) / float64(m.sampleRate) * float64(time.Second))
}
