package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go/internal/config"
	"github.com/cbegin/musetheory-go/internal/logging"
	"github.com/cbegin/musetheory-go/internal/theory"
)

// defaultQuery is used when neither notes nor a query are given.
const defaultQuery = "C Major Chord"

var (
	cfg                    = config.Default()
	log logrus.FieldLogger = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:           "musetheory",
	Short:         "Keyboard layouts and playback for scales and chords",
	Long:          `Lays out scales and chords on a two-octave keyboard and plays them as an arpeggio followed by a block chord.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		env, err := config.FromEnv(config.Default(), os.LookupEnv)
		if err != nil {
			return err
		}
		// Flags set on the command line win over the environment.
		for name, apply := range map[string]func(){
			"log-level":   func() { env.LogLevel = cfg.LogLevel },
			"log-format":  func() { env.LogFormat = cfg.LogFormat },
			"sample-rate": func() { env.SampleRate = cfg.SampleRate },
			"bpm":         func() { env.BPM = cfg.BPM },
			"addr":        func() { env.Addr = cfg.Addr },
		} {
			if flags.Changed(name) {
				apply()
			}
		}
		cfg = env
		if err := cfg.Validate(); err != nil {
			return err
		}
		l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace|debug|info|warn|error")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text|json")
	pf.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "audio sample rate")
	pf.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "tempo note lengths are measured against")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// noteSource is the shared --notes/--query/--lucky input of several commands.
type noteSource struct {
	notes []string
	query string
	lucky bool
}

func (s *noteSource) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&s.notes, "notes", "n", nil, "comma separated note names, e.g. C,E,G or C4,E4,G4")
	f.StringVarP(&s.query, "query", "q", "", `scale or chord to analyze, e.g. "D Dorian Mode"`)
	f.BoolVar(&s.lucky, "lucky", false, "pick a random scale or chord")
}

// resolve returns the notes to use and a title describing them.
func (s *noteSource) resolve(r *rand.Rand) ([]string, string, error) {
	if len(s.notes) > 0 {
		return s.notes, strings.Join(s.notes, " "), nil
	}
	query := strings.TrimSpace(s.query)
	if s.lucky {
		query = theory.Lucky(r)
	}
	if query == "" {
		query = defaultQuery
	}
	a, err := theory.Analyze(query)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", theory.FailureMessage, err)
	}
	return a.Notes, a.Name, nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
