package musetheory

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/musetheory-go/internal/audio"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/playback"
)

// ErrPlayerClosed is returned by plays after Close.
var ErrPlayerClosed = errors.New("player closed")

type PlayerOption func(*playerConfig)

type playerConfig struct {
	bpm float64
	log logrus.FieldLogger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{bpm: notes.DefaultBPM, log: logrus.StandardLogger()}
}

// WithBPM sets the tempo note lengths are measured against.
func WithBPM(bpm float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bpm = bpm
	}
}

func WithLogger(log logrus.FieldLogger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.log = log
	}
}

// Player plays notes on the sound card. The audio device is opened lazily by
// the first Play.
type Player struct {
	backend *intaudio.Backend
	service *playback.Service
	bpm     float64
	closed  atomic.Bool
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	backend := intaudio.NewBackend(sampleRate, cfg.log)
	return &Player{
		backend: backend,
		service: playback.New(backend, playback.WithBPM(cfg.bpm), playback.WithLogger(cfg.log)),
		bpm:     cfg.bpm,
	}, nil
}

// Play schedules names on instrument and returns immediately with the time
// the last note stops. Unknown instruments play nothing.
func (p *Player) Play(ctx context.Context, names []string, instrument Instrument, length Length) (time.Duration, error) {
	if p.closed.Load() {
		return 0, ErrPlayerClosed
	}
	return p.service.PlayNotes(ctx, names, instrument, length)
}

// PlayEvents plays an existing schedule.
func (p *Player) PlayEvents(ctx context.Context, events []Event, instrument Instrument) (time.Duration, error) {
	if p.closed.Load() {
		return 0, ErrPlayerClosed
	}
	return p.service.Play(ctx, events, instrument)
}

// State reports the audio engine's initialization state.
func (p *Player) State() playback.State {
	return p.service.State()
}

// Service exposes the underlying playback service for servers that share it.
func (p *Player) Service() *playback.Service {
	return p.service
}

// Wait blocks until every scheduled tone, release tails included, has
// finished or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	if p.closed.Load() || p.service.State() != playback.StateReady {
		return nil
	}
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for !p.closed.Load() && !p.backend.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops audio output. The player cannot be reused; later plays return
// ErrPlayerClosed.
func (p *Player) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.backend.Close()
}
