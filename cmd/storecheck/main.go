// Command storecheck verifies that the configured quote store is reachable by
// inserting, reading back and deleting a probe quote.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jsamuelsen/quotenest/internal/adapters/store"
	"github.com/jsamuelsen/quotenest/internal/platform/config"
	"github.com/jsamuelsen/quotenest/internal/platform/logging"
)

const checkTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "store check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("store check passed")
}

func run() error {
	cfg, err := config.Load(config.Profile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name + "-storecheck",
		Version: cfg.App.Version,
	})

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	quoteStore, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	defer func() {
		if closeErr := quoteStore.Close(); closeErr != nil {
			logger.Warn("store close error", slog.Any("error", closeErr))
		}
	}()

	if err := quoteStore.Check(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return probe(ctx, quoteStore, logger)
}
