// Package cmd implements the asha command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "asha",
	Short: "Asha - career assistant for women returning to work",
	Long: `Asha is a retrieval-grounded career assistant. It answers questions about
job listings, community events, and career guidance, and redirects gender-biased
questions toward constructive, fact-based answers.

Running asha without arguments starts an interactive chat session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
