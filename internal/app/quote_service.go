// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotenest/internal/domain"
	"github.com/jsamuelsen/quotenest/internal/platform/logging"
	"github.com/jsamuelsen/quotenest/internal/ports"
)

// QuoteService serves quote queries and mutations over a QuoteRepository.
// It depends on the port interface, not a concrete store.
type QuoteService struct {
	repo     ports.QuoteRepository
	executor *Executor
	logger   *slog.Logger
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Repository ports.QuoteRepository
	Logger     *slog.Logger
}

// NewQuoteService creates a new quote service with the provided dependencies.
// Panics if Repository is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil {
		panic("app: QuoteServiceConfig.Repository is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteService{
		repo:     cfg.Repository,
		executor: NewExecutor(logger),
		logger:   logger,
	}
}

// Get returns one quote or a domain.NotFoundError.
func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logFailure(ctx, "failed to fetch quote", id, err)
		return nil, err
	}

	return quote, nil
}

// log returns the request-scoped logger when the context carries one.
func (s *QuoteService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}

// logFailure logs store failures at error level and expected outcomes at debug.
func (s *QuoteService) logFailure(ctx context.Context, msg, id string, err error) {
	level := slog.LevelError
	if domain.IsNotFound(err) || domain.IsValidation(err) {
		level = slog.LevelDebug
	}

	s.log(ctx).Log(ctx, level, msg,
		slog.String("quote_id", id),
		slog.Any("error", err),
	)
}
