package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/voice"
)

// playArgs are the flags shared by play, render and export.
type playArgs struct {
	noteSource
	instrument string
	duration   string
}

func (p *playArgs) register(cmd *cobra.Command) {
	p.noteSource.register(cmd)
	cmd.Flags().StringVarP(&p.instrument, "instrument", "i", string(voice.Piano), "piano|guitar|violin")
	cmd.Flags().StringVarP(&p.duration, "duration", "d", string(musetheory.DefaultLength), "note length, e.g. 4n, 8n., 8t, 1m or seconds")
}

func (p *playArgs) schedule() ([]musetheory.Event, musetheory.Instrument, string, error) {
	in, ok := voice.ParseInstrument(p.instrument)
	if !ok {
		return nil, "", "", fmt.Errorf("invalid --instrument %q (expected piano|guitar|violin)", p.instrument)
	}
	length := musetheory.Length(p.duration)
	if _, err := length.Duration(cfg.BPM); err != nil {
		return nil, "", "", err
	}
	names, title, err := p.resolve(newRand())
	if err != nil {
		return nil, "", "", err
	}
	return sequencer.ScheduleWithOptions(names, length, sequencer.Options{Step: cfg.Step}), in, title, nil
}

func init() {
	var args playArgs
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Play a scale or chord as an arpeggio then a chord",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, in, title, err := args.schedule()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			pl, err := musetheory.NewPlayer(cfg.SampleRate, musetheory.WithBPM(cfg.BPM), musetheory.WithLogger(log))
			if err != nil {
				return err
			}
			defer pl.Close()
			end, err := pl.PlayEvents(ctx, events, in)
			if err != nil {
				return err
			}
			log.WithField("instrument", in).WithField("seconds", end.Seconds()).Info("playing " + title)
			if err := pl.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	args.register(playCmd)
	rootCmd.AddCommand(playCmd)
}
