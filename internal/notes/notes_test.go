package notes

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAppendsDefaultOctaveOnlyWhenMissing(t *testing.T) {
	cases := map[string]string{
		"A":   "A4",
		"A3":  "A3",
		"C#":  "C#4",
		"C#5": "C#5",
		"":    "4",
		"X":   "X4",
	}
	for in, want := range cases {
		if got := Resolve(in); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripOctave(t *testing.T) {
	assert.Equal(t, "C#", StripOctave("C#4"))
	assert.Equal(t, "A", StripOctave("A-1"))
	assert.Equal(t, "G", StripOctave("G"))
}

func TestMIDIRoundTrip(t *testing.T) {
	cases := []struct {
		pitch string
		midi  int
	}{
		{"C4", 60},
		{"A4", 69},
		{"C#4", 61},
		{"Db4", 61},
		{"B3", 59},
		{"C-1", 0},
		{"G9", 127},
	}
	for _, tc := range cases {
		got, err := MIDI(tc.pitch)
		require.NoError(t, err, tc.pitch)
		assert.Equal(t, tc.midi, got, tc.pitch)
	}
	assert.Equal(t, "C#4", Name(61))
	assert.Equal(t, "C-1", Name(0))
}

func TestMIDIAccidentalCrossesOctave(t *testing.T) {
	got, err := MIDI("B#3")
	require.NoError(t, err)
	assert.Equal(t, 60, got)
	got, err = MIDI("Cb4")
	require.NoError(t, err)
	assert.Equal(t, 59, got)
}

func TestMIDIRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "H4", "C", "C#x", "G#9"} {
		_, err := MIDI(in)
		if !errors.Is(err, ErrInvalidNote) {
			t.Fatalf("MIDI(%q) err = %v, want ErrInvalidNote", in, err)
		}
	}
}

func TestSharpRespellsFlats(t *testing.T) {
	got, err := Sharp("Eb")
	require.NoError(t, err)
	assert.Equal(t, "D#", got)
	got, err = Sharp("bb")
	require.NoError(t, err)
	assert.Equal(t, "A#", got)
}

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, Frequency(69), 1e-9)
	assert.InDelta(t, 261.6256, Frequency(60), 1e-3)
}

func TestLengthDuration(t *testing.T) {
	cases := []struct {
		length Length
		bpm    float64
		want   time.Duration
	}{
		{"4n", 120, 500 * time.Millisecond},
		{"4n", 0, 500 * time.Millisecond},
		{"8n", 120, 250 * time.Millisecond},
		{"8n.", 120, 375 * time.Millisecond},
		{"2n", 60, 2 * time.Second},
		{"1m", 120, 2 * time.Second},
		{"0.75", 120, 750 * time.Millisecond},
	}
	for _, tc := range cases {
		got, err := tc.length.Duration(tc.bpm)
		require.NoError(t, err, string(tc.length))
		assert.Equal(t, tc.want, got, string(tc.length))
	}

	triplet, err := Length("8t").Duration(120)
	require.NoError(t, err)
	assert.InDelta(t, float64(166666666), float64(triplet), float64(time.Microsecond))
}

func TestLengthDurationRejectsGarbage(t *testing.T) {
	for _, in := range []Length{"", "0n", "xn", "-1", "abc", "4q"} {
		_, err := in.Duration(120)
		assert.ErrorIs(t, err, ErrInvalidLength, string(in))
	}
}

func TestLengthDurationRejectsNonFiniteAndHuge(t *testing.T) {
	cases := []struct {
		length Length
		bpm    float64
	}{
		{"NaN", 120},
		{"Inf", 120},
		{"-Inf", 120},
		{"1e10", 120},
		{"100000", 120},
		{"31", 120},
		{"16m", 120},
		{"99999999999m", 120},
		{"1m", 0.001},
	}
	for _, tc := range cases {
		d, err := tc.length.Duration(tc.bpm)
		assert.ErrorIs(t, err, ErrInvalidLength, string(tc.length))
		assert.Zero(t, d, string(tc.length))
	}

	d, err := Length("30").Duration(120)
	require.NoError(t, err)
	assert.Equal(t, MaxDuration, d)

	d, err = Length("4n").Duration(math.NaN())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d, "non-finite bpm falls back to the default")
}
