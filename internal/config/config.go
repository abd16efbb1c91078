// Package config holds runtime settings shared by the CLI, the server and the
// desktop visualizer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/sequencer"
)

// EnvPrefix prefixes every environment override, e.g. MUSETHEORY_ADDR.
const EnvPrefix = "MUSETHEORY_"

// MaxStep bounds the arpeggio spacing.
const MaxStep = 5 * time.Second

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	SampleRate     int
	BPM            float64
	Step           time.Duration
	Addr           string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

func Default() Config {
	return Config{
		SampleRate:     48000,
		BPM:            notes.DefaultBPM,
		Step:           sequencer.DefaultStep,
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		AllowedOrigins: []string{"*"},
	}
}

// FromEnv overlays MUSETHEORY_* variables found by lookup onto c. Pass
// os.LookupEnv in production.
func FromEnv(c Config, lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	if v, ok := get("SAMPLE_RATE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("%w: %sSAMPLE_RATE=%q", ErrInvalid, EnvPrefix, v)
		}
		c.SampleRate = n
	}
	if v, ok := get("BPM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("%w: %sBPM=%q", ErrInvalid, EnvPrefix, v)
		}
		c.BPM = f
	}
	if v, ok := get("STEP"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("%w: %sSTEP=%q", ErrInvalid, EnvPrefix, v)
		}
		c.Step = d
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate < 8000 || c.SampleRate > 192000:
		return fmt.Errorf("%w: sample rate %d out of range [8000, 192000]", ErrInvalid, c.SampleRate)
	case c.BPM <= 0 || c.BPM > 400:
		return fmt.Errorf("%w: bpm %v out of range (0, 400]", ErrInvalid, c.BPM)
	case c.Step <= 0 || c.Step > MaxStep:
		return fmt.Errorf("%w: step %v out of range (0, %v]", ErrInvalid, c.Step, MaxStep)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log format %q (expected text|json)", ErrInvalid, c.LogFormat)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
