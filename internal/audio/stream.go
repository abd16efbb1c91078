// Package audio runs scheduled tones through instrument voices and streams
// the result to the sound card.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/musetheory-go/internal/effects"
	"github.com/cbegin/musetheory-go/internal/voice"
)

type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the float32 little-endian stereo
// stream ebiten expects.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide ebiten context. ebiten allows
// only one, so a second sample rate is an error.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Backend is the realtime engine: a Mixer streamed through ebiten.
type Backend struct {
	mixer  *Mixer
	log    logrus.FieldLogger
	mu     sync.Mutex
	player *ebitaudio.Player
}

func NewBackend(sampleRate int, log logrus.FieldLogger) *Backend {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := NewMixer(sampleRate, log)
	m.SetBus(effects.MasterBus(sampleRate))
	return &Backend{mixer: m, log: log}
}

// Start opens the audio device and begins streaming. Calling it again is a
// no-op.
func (b *Backend) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		return nil
	}
	actx, err := sharedAudioContext(b.mixer.SampleRate())
	if err != nil {
		return err
	}
	pl, err := actx.NewPlayerF32(NewStreamReader(b.mixer))
	if err != nil {
		return fmt.Errorf("open audio stream: %w", err)
	}
	pl.Play()
	b.player = pl
	b.log.WithField("sample_rate", b.mixer.SampleRate()).Info("audio engine started")
	return nil
}

func (b *Backend) NewVoice(params voice.Params) (Voice, error) {
	return b.mixer.NewVoice(params)
}

func (b *Backend) Now() time.Duration { return b.mixer.Now() }

// Idle reports whether every scheduled tone has finished.
func (b *Backend) Idle() bool { return b.mixer.Idle() }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return nil
	}
	b.player.Pause()
	err := b.player.Close()
	b.player = nil
	return err
}

var _ io.ReadCloser = (*StreamReader)(nil)
