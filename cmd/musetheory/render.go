package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/midiexport"
)

func init() {
	var renderArgs playArgs
	var renderOut string
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a scale or chord to a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, in, _, err := renderArgs.schedule()
			if err != nil {
				return err
			}
			wav, err := musetheory.RenderWAV(events, in, cfg.SampleRate, cfg.BPM)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), renderOut, wav)
		},
	}
	renderArgs.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "musetheory.wav", `output path ("-" for stdout)`)
	rootCmd.AddCommand(renderCmd)

	var exportArgs playArgs
	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a scale or chord as a Standard MIDI File",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, in, _, err := exportArgs.schedule()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := midiexport.Write(&buf, events, midiexport.Options{BPM: cfg.BPM, Instrument: in, Log: log}); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), exportOut, buf.Bytes())
		},
	}
	exportArgs.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "musetheory.mid", `output path ("-" for stdout)`)
	rootCmd.AddCommand(exportCmd)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("nothing to write")
	}
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.WithField("path", path).WithField("bytes", len(data)).Info("wrote file")
	return nil
}
