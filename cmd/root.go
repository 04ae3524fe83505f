// Package cmd implements the draftly command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "draftly",
	Short: "Draftly - generate UI component drafts from natural language",
	Long: `Draftly turns a natural-language description of a UI component into
several independently generated HTML/CSS implementations, streamed
incrementally from the configured model.

Run 'draftly generate "a pricing card"' for a one-shot generation, or
'draftly serve' to expose the pipeline over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
