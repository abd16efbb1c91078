// Package notes handles note names, octaves, MIDI numbers and symbolic note
// lengths.
package notes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Alphabet is the chromatic alphabet, spelled with sharps, starting at C.
var Alphabet = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// DefaultOctave is appended to note names that carry no octave digit.
const DefaultOctave = 4

var ErrInvalidNote = errors.New("invalid note name")

var letterClass = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// HasOctave reports whether name contains any digit. The check is purely
// syntactic: "C4" and "4C" both count as carrying an octave.
func HasOctave(name string) bool {
	return strings.ContainsAny(name, "0123456789")
}

// Resolve appends DefaultOctave to names without an octave digit.
func Resolve(name string) string {
	return ResolveOctave(name, DefaultOctave)
}

// ResolveOctave appends octave to name unless it already carries a digit.
func ResolveOctave(name string, octave int) string {
	if HasOctave(name) {
		return name
	}
	return name + strconv.Itoa(octave)
}

// StripOctave drops a trailing octave number (including a negative sign).
func StripOctave(name string) string {
	return strings.TrimRight(name, "-0123456789")
}

// IsRaised reports whether name is a sharped pitch.
func IsRaised(name string) bool {
	return strings.Contains(name, "#")
}

// PitchClass returns the 0..11 chromatic index of an octave-free name. Flats
// are accepted so enharmonic input (Db, Bb) maps onto the sharp alphabet.
func PitchClass(name string) (int, error) {
	semis, rest, err := parseClass(name)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	return ((semis % 12) + 12) % 12, nil
}

// Sharp respells name using the sharp alphabet. "Eb" becomes "D#".
func Sharp(name string) (string, error) {
	pc, err := PitchClass(name)
	if err != nil {
		return "", err
	}
	return Alphabet[pc], nil
}

// MIDI converts a pitch with an explicit octave ("C#4") to a MIDI note number,
// with C4 = 60.
func MIDI(pitch string) (int, error) {
	semis, rest, err := parseClass(pitch)
	if err != nil {
		return 0, err
	}
	if rest == "" {
		return 0, fmt.Errorf("%w: %q has no octave", ErrInvalidNote, pitch)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, pitch)
	}
	n := (octave+1)*12 + semis
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q is outside the MIDI range", ErrInvalidNote, pitch)
	}
	return n, nil
}

// Name is the inverse of MIDI.
func Name(midi int) string {
	return Alphabet[((midi%12)+12)%12] + strconv.Itoa(floorDiv(midi, 12)-1)
}

// Frequency returns the equal-tempered frequency of a MIDI note (A4 = 440 Hz).
func Frequency(midi int) float64 {
	return 440 * math.Pow(2, float64(midi-69)/12)
}

// parseClass returns the semitone offset from C of the leading letter and
// accidentals (B# is 12, Cb is -1) and whatever follows them.
func parseClass(s string) (semis int, rest string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("%w: empty", ErrInvalidNote)
	}
	base, ok := letterClass[upper(s[0])]
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}
	i := 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '#':
			base++
			continue
		case 'b':
			base--
			continue
		}
		break
	}
	return base, s[i:], nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
