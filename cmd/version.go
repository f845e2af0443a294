package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashaai/asha/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Asha %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		// Version output should work even with a broken config file.
		fmt.Fprintf(out, "\nConfiguration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Provider)
	fmt.Fprintf(out, "  Model: %s\n", cfg.FullModelName())
	fmt.Fprintf(out, "  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(out, "  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	fmt.Fprintf(out, "  Retrieval: top_k=%d min_score=%.2f\n", cfg.TopK, cfg.MinScore)
	return nil
}
