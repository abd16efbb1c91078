package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/server"
)

func init() {
	var withAudio bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := server.Options{
				SampleRate:     cfg.SampleRate,
				BPM:            cfg.BPM,
				Step:           cfg.Step,
				AllowedOrigins: cfg.AllowedOrigins,
				Log:            log,
				Render:         musetheory.RenderWAV,
			}
			if withAudio {
				pl, err := musetheory.NewPlayer(cfg.SampleRate, musetheory.WithBPM(cfg.BPM), musetheory.WithLogger(log))
				if err != nil {
					return err
				}
				defer pl.Close()
				opts.Player = pl
			}
			return server.New(opts).ListenAndServe(ctx, cfg.Addr)
		},
	}
	serveCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	serveCmd.Flags().BoolVar(&withAudio, "audio", false, "enable /api/play on this machine's sound card")
	rootCmd.AddCommand(serveCmd)
}
