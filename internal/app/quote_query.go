package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// Query returns one page of quotes matching filter, newest first.
//
// The count and the page are fetched concurrently; the count always covers the
// whole predicate, so a page past the end still reports accurate totals.
// Query never mutates stored state.
func (s *QuoteService) Query(ctx context.Context, filter domain.Filter, page domain.PageRequest) (domain.Page[domain.Quote], error) {
	if err := filter.Validate(); err != nil {
		return domain.Page[domain.Quote]{}, err
	}

	page = domain.NewPageRequest(page.Page, page.Limit)

	total, items, err := Parallel2(ctx,
		func(ctx context.Context) (int64, error) {
			return s.repo.Count(ctx, filter)
		},
		func(ctx context.Context) ([]domain.Quote, error) {
			return s.repo.Find(ctx, filter, page)
		},
	)
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "quote query failed",
			slog.String("filter", filter.Kind.String()),
			slog.Any("error", err),
		)

		return domain.Page[domain.Quote]{}, err
	}

	s.log(ctx).DebugContext(ctx, "quote query served",
		slog.String("filter", filter.Kind.String()),
		slog.Int("page", page.Page),
		slog.Int("limit", page.Limit),
		slog.Int("items", len(items)),
		slog.Int64("total", total),
	)

	return domain.NewPage(items, page, total), nil
}
