// Package theory defines the scale/chord analysis record the visualizer
// consumes and an offline analyzer that produces it.
package theory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/cbegin/musetheory-go/internal/notes"
)

var (
	// ErrAnalysisFailed marks a missing or malformed analysis.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrUnknownQuery is returned by Analyze for queries it cannot resolve.
	ErrUnknownQuery = errors.New("unknown scale or chord")
)

// FailureMessage is shown to users whenever an analysis cannot be produced.
const FailureMessage = "Failed to analyze request. Please try again with a specific scale or chord."

// Analysis describes a scale or chord.
type Analysis struct {
	Name        string   `json:"name"`
	Notes       []string `json:"notes"`
	Intervals   []string `json:"intervals"`
	Description string   `json:"description"`
}

func (a Analysis) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrAnalysisFailed)
	}
	if len(a.Notes) == 0 {
		return fmt.Errorf("%w: no notes", ErrAnalysisFailed)
	}
	for i, n := range a.Notes {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: note %d is empty", ErrAnalysisFailed, i)
		}
	}
	return nil
}

// DecodeAnalysis reads one JSON analysis and validates it.
func DecodeAnalysis(r io.Reader) (Analysis, error) {
	var a Analysis
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if err := a.Validate(); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

type formula struct {
	name        string
	semitones   []int
	intervals   []string
	description string
}

var formulas = []formula{
	{"Major Scale", []int{0, 2, 4, 5, 7, 9, 11}, []string{"1", "2", "3", "4", "5", "6", "7"},
		"The Ionian mode: bright and stable, the reference every other scale is compared against."},
	{"Natural Minor Scale", []int{0, 2, 3, 5, 7, 8, 10}, []string{"1", "2", "b3", "4", "5", "b6", "b7"},
		"The Aeolian mode: the relative minor of the major scale, darker in color."},
	{"Harmonic Minor Scale", []int{0, 2, 3, 5, 7, 8, 11}, []string{"1", "2", "b3", "4", "5", "b6", "7"},
		"Natural minor with a raised seventh, giving a strong leading tone and an augmented second."},
	{"Melodic Minor Scale", []int{0, 2, 3, 5, 7, 9, 11}, []string{"1", "2", "b3", "4", "5", "6", "7"},
		"Minor third over a major upper half; the ascending form used in classical writing and jazz."},
	{"Dorian Mode", []int{0, 2, 3, 5, 7, 9, 10}, []string{"1", "2", "b3", "4", "5", "6", "b7"},
		"A minor mode with a natural sixth, common in jazz, funk and folk."},
	{"Phrygian Mode", []int{0, 1, 3, 5, 7, 8, 10}, []string{"1", "b2", "b3", "4", "5", "b6", "b7"},
		"A minor mode whose flat second gives a Spanish or flamenco flavor."},
	{"Lydian Mode", []int{0, 2, 4, 6, 7, 9, 11}, []string{"1", "2", "3", "#4", "5", "6", "7"},
		"A major mode with a raised fourth, dreamy and floating."},
	{"Mixolydian Mode", []int{0, 2, 4, 5, 7, 9, 10}, []string{"1", "2", "3", "4", "5", "6", "b7"},
		"A major mode with a flat seventh, the sound of dominant chords, blues and rock."},
	{"Locrian Mode", []int{0, 1, 3, 5, 6, 8, 10}, []string{"1", "b2", "b3", "4", "b5", "b6", "b7"},
		"The most unstable mode, built on a diminished fifth."},
	{"Major Pentatonic", []int{0, 2, 4, 7, 9}, []string{"1", "2", "3", "5", "6"},
		"Five notes without half steps; open and consonant, found in folk music worldwide."},
	{"Minor Pentatonic", []int{0, 3, 5, 7, 10}, []string{"1", "b3", "4", "5", "b7"},
		"The five-note backbone of blues and rock soloing."},
	{"Blues Scale", []int{0, 3, 5, 6, 7, 10}, []string{"1", "b3", "4", "b5", "5", "b7"},
		"Minor pentatonic plus the flat fifth blue note."},
	{"Major Chord", []int{0, 4, 7}, []string{"1", "3", "5"},
		"A major triad: root, major third and perfect fifth."},
	{"Minor Chord", []int{0, 3, 7}, []string{"1", "b3", "5"},
		"A minor triad: root, minor third and perfect fifth."},
	{"Diminished Chord", []int{0, 3, 6}, []string{"1", "b3", "b5"},
		"Two stacked minor thirds; tense and eager to resolve."},
	{"Augmented Chord", []int{0, 4, 8}, []string{"1", "3", "#5"},
		"Two stacked major thirds; symmetrical and unresolved."},
	{"Major 7 Chord", []int{0, 4, 7, 11}, []string{"1", "3", "5", "7"},
		"A major triad with a major seventh; lush and relaxed."},
	{"Minor 7 Chord", []int{0, 3, 7, 10}, []string{"1", "b3", "5", "b7"},
		"A minor triad with a minor seventh; the ii chord of jazz progressions."},
	{"Dominant 7 Chord", []int{0, 4, 7, 10}, []string{"1", "3", "5", "b7"},
		"A major triad with a minor seventh; pulls strongly toward the tonic."},
	{"Min7b5 Chord", []int{0, 3, 6, 10}, []string{"1", "b3", "b5", "b7"},
		"The half-diminished chord, the ii of a minor key."},
}

// aliases maps normalized type spellings to formula names.
var aliases = map[string]string{
	"":                 "Major Chord",
	"major":            "Major Scale",
	"ionian":           "Major Scale",
	"minor":            "Natural Minor Scale",
	"minor scale":      "Natural Minor Scale",
	"aeolian":          "Natural Minor Scale",
	"harmonic minor":   "Harmonic Minor Scale",
	"melodic minor":    "Melodic Minor Scale",
	"dorian":           "Dorian Mode",
	"phrygian":         "Phrygian Mode",
	"lydian":           "Lydian Mode",
	"mixolydian":       "Mixolydian Mode",
	"locrian":          "Locrian Mode",
	"pentatonic":       "Major Pentatonic",
	"blues":            "Blues Scale",
	"chord":            "Major Chord",
	"maj":              "Major Chord",
	"m":                "Minor Chord",
	"min":              "Minor Chord",
	"dim":              "Diminished Chord",
	"aug":              "Augmented Chord",
	"+":                "Augmented Chord",
	"maj7":             "Major 7 Chord",
	"m7":               "Minor 7 Chord",
	"min7":             "Minor 7 Chord",
	"7":                "Dominant 7 Chord",
	"dom7":             "Dominant 7 Chord",
	"m7b5":             "Min7b5 Chord",
	"half diminished":  "Min7b5 Chord",
	"half-diminished":  "Min7b5 Chord",
	"dominant 7":       "Dominant 7 Chord",
	"dominant seventh": "Dominant 7 Chord",
}

var byName = func() map[string]formula {
	m := make(map[string]formula, len(formulas)+len(aliases))
	for _, f := range formulas {
		m[strings.ToLower(f.name)] = f
	}
	for alias, name := range aliases {
		m[alias] = m[strings.ToLower(name)]
	}
	return m
}()

// Types lists the recognized scale and chord type names.
func Types() []string {
	out := make([]string, len(formulas))
	for i, f := range formulas {
		out[i] = f.name
	}
	return out
}

// Roots are the roots Lucky draws from, including flat spellings.
var Roots = []string{"C", "C#", "Db", "D", "Eb", "E", "F", "F#", "Gb", "G", "Ab", "A", "Bb", "B"}

// Analyze resolves queries such as "Eb Minor Scale", "G7 Chord" or
// "F# dorian". Notes are spelled with sharps.
func Analyze(query string) (Analysis, error) {
	q := strings.Join(strings.Fields(query), " ")
	root, rest := splitRoot(q)
	if root == "" {
		return Analysis{}, fmt.Errorf("%w: %q", ErrUnknownQuery, query)
	}
	pc, err := notes.PitchClass(root)
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %q", ErrUnknownQuery, query)
	}
	f, ok := lookup(rest)
	if !ok {
		return Analysis{}, fmt.Errorf("%w: %q", ErrUnknownQuery, query)
	}

	out := Analysis{
		Name:        canonicalRoot(root) + " " + f.name,
		Notes:       make([]string, len(f.semitones)),
		Intervals:   append([]string(nil), f.intervals...),
		Description: f.description,
	}
	for i, st := range f.semitones {
		out.Notes[i] = notes.Alphabet[(pc+st)%12]
	}
	return out, nil
}

func lookup(rest string) (formula, bool) {
	key := strings.ToLower(strings.TrimSpace(rest))
	if f, ok := byName[key]; ok {
		return f, true
	}
	// "G7 Chord" arrives as "7 chord".
	if trimmed := strings.TrimSpace(strings.TrimSuffix(key, "chord")); trimmed != key {
		if f, ok := byName[trimmed]; ok {
			return f, true
		}
	}
	return formula{}, false
}

// splitRoot separates a leading note letter and its accidentals from the
// rest of the query. A 'b' after the letter is a flat unless it starts
// "blues" ("Bbm7" vs "Cblues").
func splitRoot(q string) (root, rest string) {
	if q == "" {
		return "", ""
	}
	switch q[0] | 0x20 {
	case 'a', 'b', 'c', 'd', 'e', 'f', 'g':
	default:
		return "", q
	}
	i := 1
	for i < len(q) {
		c := q[i]
		if c == '#' {
			i++
			continue
		}
		if c == 'b' && !strings.HasPrefix(strings.ToLower(q[i:]), "blues") {
			i++
			continue
		}
		break
	}
	return q[:i], q[i:]
}

func canonicalRoot(root string) string {
	return strings.ToUpper(root[:1]) + root[1:]
}

// Lucky returns a random "<root> <type>" query that Analyze accepts.
func Lucky(r *rand.Rand) string {
	return Roots[r.Intn(len(Roots))] + " " + formulas[r.Intn(len(formulas))].name
}
