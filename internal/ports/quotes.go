// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never driver rows or documents
//   - Error returns use domain error types (ErrNotFound, ErrStore, etc.)
package ports

import (
	"context"
	"io"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// QuoteRepository is the record store contract for quotes.
//
// Every implementation returns quotes ordered by CreatedAt descending, with ties
// broken by ID descending. IDs are time-ordered, so ties resolve to the most
// recently inserted record first.
type QuoteRepository interface {
	// Find returns at most page.Limit quotes matching filter after skipping page.Offset().
	// An offset past the last match yields an empty slice, not an error.
	Find(ctx context.Context, filter domain.Filter, page domain.PageRequest) ([]domain.Quote, error)

	// Count returns the number of quotes matching filter, ignoring pagination.
	Count(ctx context.Context, filter domain.Filter) (int64, error)

	// Get returns the quote with id or a domain.NotFoundError.
	Get(ctx context.Context, id string) (*domain.Quote, error)

	// Insert stores a normalized input, assigning ID and timestamps.
	Insert(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error)

	// Update merges a normalized patch into the stored quote in one atomic step.
	Update(ctx context.Context, id string, patch domain.QuotePatch) (*domain.Quote, error)

	// ToggleFavorite flips the favorite flag atomically and returns the new state.
	ToggleFavorite(ctx context.Context, id string) (*domain.Quote, error)

	// Delete removes the quote or returns a domain.NotFoundError.
	Delete(ctx context.Context, id string) error
}

// QuoteStore is a QuoteRepository backed by a live connection that can be
// probed for readiness and must be closed on shutdown.
type QuoteStore interface {
	QuoteRepository
	HealthChecker
	io.Closer
}
