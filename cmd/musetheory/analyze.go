package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/musetheory-go/internal/theory"
)

func init() {
	var lucky, list bool
	analyzeCmd := &cobra.Command{
		Use:   "analyze [query...]",
		Short: "Describe a scale or chord as JSON",
		Example: `  musetheory analyze Eb Minor Pentatonic
  musetheory analyze --lucky`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if list {
				return enc.Encode(theory.Types())
			}
			query := strings.Join(args, " ")
			if lucky {
				query = theory.Lucky(newRand())
			}
			if strings.TrimSpace(query) == "" {
				return errors.New("a query or --lucky is required")
			}
			a, err := theory.Analyze(query)
			if err != nil {
				log.WithError(err).WithField("query", query).Debug("analysis failed")
				return errors.New(theory.FailureMessage)
			}
			return enc.Encode(a)
		},
	}
	analyzeCmd.Flags().BoolVar(&lucky, "lucky", false, "analyze a random scale or chord")
	analyzeCmd.Flags().BoolVar(&list, "types", false, "list the scale and chord types understood")
	rootCmd.AddCommand(analyzeCmd)
}
