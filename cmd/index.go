package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load job and event listings into the knowledge index",
	Long: `Index reads the configured jobs CSV and events JSON, embeds every entry,
and replaces the previous documents of each source in the index. Without
configured files, bundled sample data is loaded.`,
	RunE: func(*cobra.Command, []string) error {
		return runIndex()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex() error {
	ctx := context.Background()
	logger := newLogger()

	// One indexing run at a time per machine; a second invocation fails
	// fast instead of racing the source replacement.
	lockPath := filepath.Join(os.TempDir(), "asha-index.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another indexing run is in progress (lock: %s)", lockPath)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("releasing index lock", "error", unlockErr)
		}
	}()

	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	jobs, events, err := a.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Printf("Indexed %d jobs and %d events.\n", jobs, events)
	return nil
}
