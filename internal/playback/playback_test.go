package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/musetheory-go/internal/audio"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/voice"
)

type trigger struct {
	pitches []string
	length  time.Duration
	at      time.Duration
}

type fakeVoice struct {
	mu       sync.Mutex
	params   voice.Params
	triggers []trigger
}

func (v *fakeVoice) TriggerAttackRelease(pitches []string, length, at time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.triggers = append(v.triggers, trigger{pitches, length, at})
	return nil
}

func (v *fakeVoice) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.triggers)
}

type fakeEngine struct {
	starts   atomic.Int32
	created  atomic.Int32
	gate     chan struct{}
	startFn  func() error
	honorCtx bool
	now      time.Duration

	mu     sync.Mutex
	voices map[voice.Waveform]*fakeVoice
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{voices: map[voice.Waveform]*fakeVoice{}}
}

func (e *fakeEngine) Start(ctx context.Context) error {
	e.starts.Add(1)
	if e.gate != nil {
		<-e.gate
	}
	if e.honorCtx {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if e.startFn != nil {
		return e.startFn()
	}
	return nil
}

func (e *fakeEngine) NewVoice(p voice.Params) (audio.Voice, error) {
	e.created.Add(1)
	v := &fakeVoice{params: p}
	e.mu.Lock()
	e.voices[p.Waveform] = v
	e.mu.Unlock()
	return v, nil
}

func (e *fakeEngine) Now() time.Duration { return e.now }

func (e *fakeEngine) voiceFor(in voice.Instrument) *fakeVoice {
	p, _ := voice.Preset(in)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices[p.Waveform]
}

func TestConcurrentPlaysInitializeOnce(t *testing.T) {
	eng := newFakeEngine()
	eng.gate = make(chan struct{})
	svc := New(eng)
	require.Equal(t, StateUninitialized, svc.State())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlayNotes(context.Background(), []string{"C", "E", "G"}, voice.Piano, "4n")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return svc.State() == StateInitializing }, time.Second, time.Millisecond)
	close(eng.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, int32(1), eng.starts.Load(), "engine started exactly once")
	assert.Equal(t, int32(len(voice.Instruments)), eng.created.Load(), "one voice per instrument")
	assert.Equal(t, callers*4, eng.voiceFor(voice.Piano).count(), "every caller still plays")
}

func TestCancelledStarterDoesNotFailSharedInit(t *testing.T) {
	eng := newFakeEngine()
	eng.gate = make(chan struct{})
	eng.honorCtx = true
	svc := New(eng)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.PlayNotes(ctx, []string{"C"}, voice.Piano, "4n")
		first <- err
	}()
	require.Eventually(t, func() bool { return svc.State() == StateInitializing }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := svc.PlayNotes(context.Background(), []string{"E"}, voice.Piano, "4n")
		second <- err
	}()
	cancel()
	close(eng.gate)

	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, int32(1), eng.starts.Load())
}

func TestPlayOffsetsFromEngineClock(t *testing.T) {
	eng := newFakeEngine()
	eng.now = 10 * time.Second
	svc := New(eng)

	end, err := svc.PlayNotes(context.Background(), []string{"C", "E", "G"}, voice.Guitar, "4n")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, end)

	trs := eng.voiceFor(voice.Guitar).triggers
	require.Len(t, trs, 4)
	wantAt := []time.Duration{10 * time.Second, 10500 * time.Millisecond, 11 * time.Second, 12 * time.Second}
	for i, tr := range trs {
		assert.Equal(t, wantAt[i], tr.at)
		assert.Equal(t, 500*time.Millisecond, tr.length)
	}
	assert.Equal(t, []string{"C4", "E4", "G4"}, trs[3].pitches)
	assert.Zero(t, eng.voiceFor(voice.Piano).count(), "instruments do not share state")
}

func TestUnknownInstrumentIsSilentNoop(t *testing.T) {
	eng := newFakeEngine()
	logger, _ := test.NewNullLogger()
	svc := New(eng, WithLogger(logger))

	end, err := svc.PlayNotes(context.Background(), []string{"C"}, voice.Instrument("kazoo"), "4n")
	require.NoError(t, err)
	assert.Zero(t, end)
	for _, in := range voice.Instruments {
		assert.Zero(t, eng.voiceFor(in).count())
	}
	assert.Equal(t, StateReady, svc.State(), "the first request of any kind initializes")
}

func TestEmptyNotesPlayNothing(t *testing.T) {
	eng := newFakeEngine()
	svc := New(eng)
	end, err := svc.PlayNotes(context.Background(), nil, voice.Violin, "4n")
	require.NoError(t, err)
	assert.Zero(t, end)
	assert.Zero(t, eng.voiceFor(voice.Violin).count())
}

func TestFailedInitCanBeRetried(t *testing.T) {
	eng := newFakeEngine()
	boom := errors.New("no audio device")
	eng.startFn = func() error { return boom }
	svc := New(eng)

	_, err := svc.PlayNotes(context.Background(), []string{"C"}, voice.Piano, "4n")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateUninitialized, svc.State())
	assert.ErrorIs(t, svc.LastInitError(), boom)

	eng.startFn = nil
	_, err = svc.PlayNotes(context.Background(), []string{"C"}, voice.Piano, "4n")
	require.NoError(t, err)
	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, int32(2), eng.starts.Load())
}

func TestInvalidLengthTriggersNothing(t *testing.T) {
	eng := newFakeEngine()
	svc := New(eng)
	events := sequencer.Schedule([]string{"C", "D"}, "bogus")
	_, err := svc.Play(context.Background(), events, voice.Piano)
	require.Error(t, err)
	assert.Zero(t, eng.voiceFor(voice.Piano).count())
}

func TestWithBPMScalesLengths(t *testing.T) {
	eng := newFakeEngine()
	svc := New(eng, WithBPM(60))
	_, err := svc.PlayNotes(context.Background(), []string{"C"}, voice.Piano, "4n")
	require.NoError(t, err)
	assert.Equal(t, time.Second, eng.voiceFor(voice.Piano).triggers[0].length)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "State(9)", State(9).String())
}
