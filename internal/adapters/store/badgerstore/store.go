// Package badgerstore implements the quote repository on an embedded Badger database.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

const (
	// Name identifies this backend in config and health output.
	Name = "badger"

	maxConflictRetries = 16
)

var errClosed = errors.New("database is closed")

// Config holds the settings needed to open the database.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests and throwaway runs.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// New opens the database described by cfg.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	badgerOpts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}

	badgerOpts.Logger = nil
	badgerOpts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	badgerOpts.CompactL0OnClose = !cfg.InMemory

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	logger.Info("badger database opened", slog.String("path", cfg.Path), slog.Bool("in_memory", cfg.InMemory))

	return s, nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return Name
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	if s.db.IsClosed() {
		return domain.NewStoreError("ping", errClosed)
	}

	err := s.db.View(func(*badger.Txn) error {
		return ctx.Err()
	})
	if err != nil {
		return domain.NewStoreError("ping", err)
	}

	return nil
}

// Close flushes and closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}

	s.logger.Info("closing badger database")

	return s.db.Close()
}

// Find implements ports.QuoteRepository.
func (s *Store) Find(ctx context.Context, filter domain.Filter, page domain.PageRequest) ([]domain.Quote, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	page = domain.NewPageRequest(page.Page, page.Limit)
	quotes := make([]domain.Quote, 0, min(page.Limit, 64))

	err := s.db.View(func(txn *badger.Txn) error {
		return scan(ctx, txn, filter, page.Offset(), func(q *domain.Quote) bool {
			quotes = append(quotes, *q)
			return len(quotes) < page.Limit
		})
	})
	if err != nil {
		return nil, domain.NewStoreError("find", err)
	}

	return quotes, nil
}

// Count implements ports.QuoteRepository.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	var total int64

	err := s.db.View(func(txn *badger.Txn) error {
		if indexed(filter) {
			return countKeys(ctx, txn, indexPrefix(filter), &total)
		}

		return scan(ctx, txn, filter, 0, func(*domain.Quote) bool {
			total++
			return true
		})
	})
	if err != nil {
		return 0, domain.NewStoreError("count", err)
	}

	return total, nil
}

// Get implements ports.QuoteRepository.
func (s *Store) Get(ctx context.Context, id string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("get", err)
	}

	var q *domain.Quote

	err := s.db.View(func(txn *badger.Txn) error {
		var err error

		q, err = getQuote(txn, id)

		return err
	})
	if err != nil {
		return nil, translate("get", id, err)
	}

	return q, nil
}

// Insert implements ports.QuoteRepository.
func (s *Store) Insert(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	q := in.NewQuote(id.String(), s.now().UTC())

	err = s.db.Update(func(txn *badger.Txn) error {
		return putQuote(txn, &q, nil)
	})
	if err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	return &q, nil
}

// Update implements ports.QuoteRepository.
func (s *Store) Update(ctx context.Context, id string, patch domain.QuotePatch) (*domain.Quote, error) {
	return s.modify(ctx, "update", id, func(q *domain.Quote) {
		patch.Apply(q, s.now().UTC())
	})
}

// ToggleFavorite implements ports.QuoteRepository.
// The read and the write share one transaction; a concurrent commit on the same
// key aborts it with badger.ErrConflict and the whole flip is retried.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*domain.Quote, error) {
	return s.modify(ctx, "toggle_favorite", id, func(q *domain.Quote) {
		q.ToggleFavorite(s.now().UTC())
	})
}

// Delete implements ports.QuoteRepository. A delete that loses a race with
// another write to the same quote is retried and then sees it gone.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.retry(ctx, "delete", id, func(txn *badger.Txn) error {
		q, err := getQuote(txn, id)
		if err != nil {
			return err
		}

		keys := [][]byte{
			quoteKey(id),
			indexKey(createdIndexPrefix, q.CreatedAt, id),
			indexKey(favoriteIndexPrefix, q.CreatedAt, id),
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Store) modify(ctx context.Context, op, id string, mutate func(q *domain.Quote)) (*domain.Quote, error) {
	var result *domain.Quote

	err := s.retry(ctx, op, id, func(txn *badger.Txn) error {
		prev, err := getQuote(txn, id)
		if err != nil {
			return err
		}

		next := *prev
		mutate(&next)

		if err := putQuote(txn, &next, prev); err != nil {
			return err
		}

		result = &next

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// retry runs fn in a read-write transaction, starting over while the commit
// fails with badger.ErrConflict.
func (s *Store) retry(ctx context.Context, op, id string, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.NewStoreError(op, err)
		}

		err := s.db.Update(fn)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries:
			s.logger.DebugContext(ctx, "retrying conflicting transaction",
				slog.String("op", op),
				slog.String("quote_id", id),
				slog.Int("attempt", attempt+1),
			)
		default:
			return translate(op, id, err)
		}
	}
}

func translate(op, id string, err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	return domain.NewStoreError(op, err)
}

func getQuote(txn *badger.Txn, id string) (*domain.Quote, error) {
	if id == "" {
		return nil, badger.ErrKeyNotFound
	}

	item, err := txn.Get(quoteKey(id))
	if err != nil {
		return nil, err
	}

	var doc document

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", id, err)
	}

	q := doc.toDomain()

	return &q, nil
}

// putQuote writes the document and keeps both indexes in step with it.
// prev is nil for inserts.
func putQuote(txn *badger.Txn, q, prev *domain.Quote) error {
	data, err := json.Marshal(fromDomain(q))
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", q.ID, err)
	}

	if err := txn.Set(quoteKey(q.ID), data); err != nil {
		return err
	}

	if prev == nil {
		if err := txn.Set(indexKey(createdIndexPrefix, q.CreatedAt, q.ID), nil); err != nil {
			return err
		}
	}

	favKey := indexKey(favoriteIndexPrefix, q.CreatedAt, q.ID)

	switch {
	case q.Favorite:
		return txn.Set(favKey, nil)
	case prev != nil && prev.Favorite:
		return txn.Delete(favKey)
	default:
		return nil
	}
}
