// Package playback lazily brings up the audio engine and plays scheduled
// notes on one of the instrument voices.
package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/cbegin/musetheory-go/internal/audio"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/voice"
)

// Engine is the audio runtime the service drives.
type Engine interface {
	Start(ctx context.Context) error
	NewVoice(params voice.Params) (audio.Voice, error)
	Now() time.Duration
}

type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Option func(*Service)

// WithBPM sets the tempo symbolic lengths are converted at.
func WithBPM(bpm float64) Option {
	return func(s *Service) { s.bpm = bpm }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// Service owns the engine and the instrument voices. The first Play (or an
// explicit Init) starts the engine and creates one voice per instrument; all
// later calls reuse them. Plays are not serialized against each other.
type Service struct {
	engine Engine
	bpm    float64
	log    logrus.FieldLogger

	state  atomic.Int32
	flight singleflight.Group
	voices map[voice.Instrument]audio.Voice // written once before StateReady

	mu      sync.Mutex
	lastErr error
}

func New(engine Engine, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		bpm:    notes.DefaultBPM,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) State() State { return State(s.state.Load()) }

// Init starts the engine exactly once. Callers arriving while another
// initialization is in flight wait for that one instead of starting their own.
// A failed initialization returns the service to StateUninitialized.
// Cancelling ctx does not abort a startup other callers may be sharing.
func (s *Service) Init(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	_, err, _ := s.flight.Do("init", func() (any, error) {
		if s.State() == StateReady {
			return nil, nil
		}
		s.state.Store(int32(StateInitializing))
		// The engine outlives the caller that happened to start it.
		voices, err := s.start(context.WithoutCancel(ctx))
		if err != nil {
			s.state.Store(int32(StateUninitialized))
			s.setErr(err)
			return nil, err
		}
		s.voices = voices
		s.state.Store(int32(StateReady))
		s.log.WithField("instruments", len(voices)).Debug("playback ready")
		return nil, nil
	})
	return err
}

func (s *Service) start(ctx context.Context) (map[voice.Instrument]audio.Voice, error) {
	if err := s.engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("start audio engine: %w", err)
	}
	voices := make(map[voice.Instrument]audio.Voice, len(voice.Instruments))
	for _, in := range voice.Instruments {
		params, _ := voice.Preset(in)
		v, err := s.engine.NewVoice(params)
		if err != nil {
			return nil, fmt.Errorf("create %s voice: %w", in, err)
		}
		voices[in] = v
	}
	return voices, nil
}

// LastInitError returns the most recent initialization failure, if any.
func (s *Service) LastInitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Service) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Play triggers events on instrument relative to the engine clock at the
// time of the call. An instrument without a voice plays nothing and is not an
// error. It returns the offset at which the last event stops sounding.
func (s *Service) Play(ctx context.Context, events []sequencer.Event, instrument voice.Instrument) (time.Duration, error) {
	if err := s.Init(ctx); err != nil {
		return 0, err
	}
	v, ok := s.voices[instrument]
	if !ok {
		s.log.WithField("instrument", instrument).Debug("unknown instrument, nothing to play")
		return 0, nil
	}

	lengths := make([]time.Duration, len(events))
	for i, ev := range events {
		d, err := ev.Length.Duration(s.bpm)
		if err != nil {
			return 0, err
		}
		lengths[i] = d
	}

	t0 := s.engine.Now()
	var end time.Duration
	for i, ev := range events {
		d := lengths[i]
		if err := v.TriggerAttackRelease(ev.Pitches, d, t0+ev.Offset); err != nil {
			return 0, fmt.Errorf("trigger %v: %w", ev.Pitches, err)
		}
		if e := ev.Offset + d; e > end {
			end = e
		}
	}
	s.log.WithFields(logrus.Fields{
		"instrument": instrument,
		"events":     len(events),
	}).Debug("scheduled playback")
	return end, nil
}

// PlayNotes schedules names as an arpeggio plus chord and plays them.
func (s *Service) PlayNotes(ctx context.Context, names []string, instrument voice.Instrument, length notes.Length) (time.Duration, error) {
	return s.Play(ctx, sequencer.Schedule(names, length), instrument)
}
