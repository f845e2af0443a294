package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashaai/asha/internal/app"
	"github.com/ashaai/asha/internal/config"
	"github.com/ashaai/asha/internal/log"
)

// newLogger builds the CLI logger honoring the --verbose flag.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and initializes the application container.
// The caller owns the returned App and must Close it.
func setupApp(ctx context.Context, logger log.Logger) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
