package notes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultBPM is the tempo symbolic lengths are measured against when none is
// given. At 120 BPM a quarter note ("4n") lasts 500ms.
const DefaultBPM = 120.0

var ErrInvalidLength = errors.New("invalid note length")

// Length is a symbolic note length:
//
//	"4n"   quarter note
//	"8n."  dotted eighth
//	"8t"   eighth-note triplet
//	"1m"   one 4/4 measure
//	"0.75" seconds
type Length string

// DefaultLength is used when a caller gives no length.
const DefaultLength Length = "4n"

// MaxDuration bounds a single note.
const MaxDuration = 30 * time.Second

// Duration converts l to wall-clock time at bpm. A non-positive or non-finite
// bpm falls back to DefaultBPM. Results above MaxDuration are rejected.
func (l Length) Duration(bpm float64) (time.Duration, error) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		bpm = DefaultBPM
	}
	beat := 60.0 / bpm
	s := strings.TrimSpace(string(l))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidLength)
	}

	var (
		body   = s
		factor = 1.0
		unit   byte
	)
	switch {
	case strings.HasSuffix(s, "n."):
		body, unit, factor = s[:len(s)-2], 'n', 1.5
	case strings.HasSuffix(s, "n"):
		body, unit = s[:len(s)-1], 'n'
	case strings.HasSuffix(s, "t"):
		body, unit, factor = s[:len(s)-1], 'n', 2.0/3.0
	case strings.HasSuffix(s, "m"):
		body, unit = s[:len(s)-1], 'm'
	}

	if unit == 0 {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLength, s)
		}
		return seconds(s, secs)
	}

	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLength, s)
	}
	if unit == 'm' {
		return seconds(s, float64(n)*4*beat)
	}
	return seconds(s, 4*beat/float64(n)*factor)
}

func seconds(src string, secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLength, src)
	}
	if secs > MaxDuration.Seconds() {
		return 0, fmt.Errorf("%w: %q is longer than %v", ErrInvalidLength, src, MaxDuration)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
