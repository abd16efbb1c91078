package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go/internal/keyboard"
	"github.com/cbegin/musetheory-go/internal/termview"
)

func init() {
	var src noteSource
	var plain bool
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Print the keyboard with a scale or chord highlighted",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, title, err := src.resolve(newRand())
			if err != nil {
				return err
			}
			slots := keyboard.Layout(keyboard.NewHighlightSet(names...))
			if plain {
				for _, s := range keyboard.Highlighted(slots) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.Index, s.Note)
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), termview.RenderTitled(title, slots))
			return nil
		},
	}
	src.register(keysCmd)
	keysCmd.Flags().BoolVar(&plain, "plain", false, "list highlighted slots instead of drawing the keyboard")
	rootCmd.AddCommand(keysCmd)
}
