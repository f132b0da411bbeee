package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jsamuelsen/quotenest/internal/domain"
	"github.com/jsamuelsen/quotenest/internal/ports"
)

// probeInput is the throwaway quote written during the check.
var probeInput = domain.QuoteInput{
	Text:   "This is a test quote",
	Author: "Test Author",
	Source: "Test Book",
	Tags:   []string{"test", "debug"},
}

// probe runs insert, read back and delete against repo. The returned error
// names the step that failed.
func probe(ctx context.Context, repo ports.QuoteRepository, logger *slog.Logger) error {
	created, err := repo.Insert(ctx, probeInput)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	logger.InfoContext(ctx, "probe quote inserted", slog.String("quote_id", created.ID))

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		return fmt.Errorf("read back %s: %w", created.ID, err)
	}

	if got.Text != probeInput.Text || got.Author != probeInput.Author ||
		got.Source != probeInput.Source || !slices.Equal(got.Tags, probeInput.Tags) {
		return fmt.Errorf("read back %s: stored quote does not match probe", created.ID)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		return fmt.Errorf("delete %s: %w", created.ID, err)
	}

	if _, err := repo.Get(ctx, created.ID); !domain.IsNotFound(err) {
		return fmt.Errorf("delete %s: quote still readable", created.ID)
	}

	logger.InfoContext(ctx, "probe quote removed", slog.String("quote_id", created.ID))

	return nil
}
