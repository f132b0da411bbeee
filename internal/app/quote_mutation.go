package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// errContractViolation marks a store answer that breaks the repository contract.
var errContractViolation = errors.New("store returned an inconsistent record")

// Create validates input and inserts a new quote.
// Validation failures never reach the store.
func (s *QuoteService) Create(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error) {
	quote, err := Execute(ctx, s.executor, Operation[domain.QuoteInput, *domain.Quote]{
		Name: "create_quote",
		Validate: func(_ context.Context, in domain.QuoteInput) (domain.QuoteInput, error) {
			return in.Normalize()
		},
		Perform: func(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error) {
			return s.repo.Insert(ctx, in)
		},
		Verify: func(_ context.Context, _ domain.QuoteInput, q *domain.Quote) error {
			if q == nil || q.ID == "" || q.CreatedAt.IsZero() {
				return domain.NewStoreError("insert", errContractViolation)
			}

			return nil
		},
	}, in)
	if err != nil {
		s.logFailure(ctx, "failed to create quote", "", err)
		return nil, err
	}

	s.log(ctx).InfoContext(ctx, "created quote",
		slog.String("quote_id", quote.ID),
		slog.String("author", quote.Author),
	)

	return quote, nil
}

// Update merges the fields present in patch into an existing quote.
// Present fields are held to the same rules as on create. An empty patch
// returns the stored quote untouched.
func (s *QuoteService) Update(ctx context.Context, id string, patch domain.QuotePatch) (*domain.Quote, error) {
	quote, err := Execute(ctx, s.executor, Operation[domain.QuotePatch, *domain.Quote]{
		Name: "update_quote",
		Validate: func(_ context.Context, p domain.QuotePatch) (domain.QuotePatch, error) {
			return p.Normalize()
		},
		Perform: func(ctx context.Context, p domain.QuotePatch) (*domain.Quote, error) {
			if p.IsEmpty() {
				return s.repo.Get(ctx, id)
			}

			return s.repo.Update(ctx, id, p)
		},
		Verify: verifyID[domain.QuotePatch](id, "update"),
	}, patch)
	if err != nil {
		s.logFailure(ctx, "failed to update quote", id, err)
		return nil, err
	}

	s.log(ctx).InfoContext(ctx, "updated quote", slog.String("quote_id", id))

	return quote, nil
}

// ToggleFavorite flips the favorite flag. The store performs the flip atomically.
func (s *QuoteService) ToggleFavorite(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := Execute(ctx, s.executor, Operation[string, *domain.Quote]{
		Name: "toggle_favorite",
		Perform: func(ctx context.Context, id string) (*domain.Quote, error) {
			return s.repo.ToggleFavorite(ctx, id)
		},
		Verify: verifyID[string](id, "toggle_favorite"),
	}, id)
	if err != nil {
		s.logFailure(ctx, "failed to toggle favorite", id, err)
		return nil, err
	}

	s.log(ctx).InfoContext(ctx, "toggled favorite",
		slog.String("quote_id", id),
		slog.Bool("favorite", quote.Favorite),
	)

	return quote, nil
}

// Delete removes a quote permanently.
func (s *QuoteService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logFailure(ctx, "failed to delete quote", id, err)
		return err
	}

	s.log(ctx).InfoContext(ctx, "deleted quote", slog.String("quote_id", id))

	return nil
}

func verifyID[I any](id, op string) func(context.Context, I, *domain.Quote) error {
	return func(_ context.Context, _ I, q *domain.Quote) error {
		if q == nil || q.ID != id {
			return domain.NewStoreError(op, fmt.Errorf("%w: expected id %q", errContractViolation, id))
		}

		return nil
	}
}
