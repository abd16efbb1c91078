package musetheory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/musetheory-go/internal/audio"
	"github.com/cbegin/musetheory-go/internal/effects"
	"github.com/cbegin/musetheory-go/internal/voice"
)

// renderTail is extra silence after the longest release.
const renderTail = 100 * time.Millisecond

// MaxRender bounds an offline render, release tail included.
const MaxRender = 2 * time.Minute

var ErrRenderTooLong = errors.New("render too long")

// RenderSamples renders events on instrument into interleaved stereo float32
// samples, long enough for the final release to fade out. Unknown instruments
// render nothing.
func RenderSamples(events []Event, instrument Instrument, sampleRate int, bpm float64) ([]float32, error) {
	params, ok := voice.Preset(instrument)
	if !ok || len(events) == 0 {
		return nil, nil
	}
	m := intaudio.NewMixer(sampleRate, logrus.StandardLogger())
	m.SetBus(effects.MasterBus(sampleRate))
	v, err := m.NewVoice(params)
	if err != nil {
		return nil, err
	}
	lengths := make([]time.Duration, len(events))
	var end time.Duration
	for i, ev := range events {
		d, err := ev.Length.Duration(bpm)
		if err != nil {
			return nil, err
		}
		lengths[i] = d
		if e := ev.Offset + d; e > end {
			end = e
		}
	}
	total := end + time.Duration(params.Envelope.Release*float64(time.Second)) + renderTail
	if total > MaxRender {
		return nil, fmt.Errorf("%w: %v exceeds %v", ErrRenderTooLong, total, MaxRender)
	}
	for i, ev := range events {
		if err := v.TriggerAttackRelease(ev.Pitches, lengths[i], ev.Offset); err != nil {
			return nil, err
		}
	}
	out := make([]float32, int(total.Seconds()*float64(sampleRate))*2)
	m.Process(out)
	return out, nil
}

// RenderWAV is RenderSamples encoded as a stereo float WAV file.
func RenderWAV(events []Event, instrument Instrument, sampleRate int, bpm float64) ([]byte, error) {
	samples, err := RenderSamples(events, instrument, sampleRate, bpm)
	if err != nil {
		return nil, err
	}
	return EncodeWAVFloat32LE(samples, sampleRate, 2), nil
}

// EncodeWAVFloat32LE wraps samples in a RIFF/WAVE header with IEEE float
// format (tag 3).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	const headerSize = 44
	dataSize := len(samples) * 4
	out := make([]byte, headerSize+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(headerSize-8+dataSize))
	copy(out[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*4))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*4))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[headerSize+i*4:], math.Float32bits(s))
	}
	return out
}
