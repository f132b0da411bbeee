// Package firestorestore implements the quote repository on Cloud Firestore.
package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

const (
	// Name identifies this backend in config and health output.
	Name = "firestore"

	// DefaultCollection holds quote documents when none is configured.
	DefaultCollection = "quotes"

	countAlias     = "total"
	maxTxnAttempts = 20
)

// Config holds the project settings.
type Config struct {
	ProjectID  string
	DatabaseID string
	Collection string
}

// Store is a quote repository backed by one Firestore collection.
type Store struct {
	client *firestore.Client
	col    *firestore.CollectionRef
	logger *slog.Logger
	now    func() time.Time
}

// New dials Firestore. FIRESTORE_EMULATOR_HOST is honoured by the client library.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return NewFromClient(client, cfg.Collection, logger), nil
}

// NewFromClient wraps an existing client. The store takes ownership of it.
func NewFromClient(client *firestore.Client, collection string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	if collection == "" {
		collection = DefaultCollection
	}

	logger.Info("firestore store ready", slog.String("collection", collection))

	return &Store{
		client: client,
		col:    client.Collection(collection),
		logger: logger,
		now:    time.Now,
	}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return Name
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	iter := s.col.Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return domain.NewStoreError("ping", err)
	}

	return nil
}

// Close releases the client connection.
func (s *Store) Close() error {
	s.logger.Info("closing firestore client")

	return s.client.Close()
}

// Find implements ports.QuoteRepository.
func (s *Store) Find(ctx context.Context, filter domain.Filter, page domain.PageRequest) ([]domain.Quote, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	page = domain.NewPageRequest(page.Page, page.Limit)
	offset := page.Offset()

	if filter.Kind == domain.FilterSearch {
		return s.scan(ctx, filter, offset, page.Limit)
	}

	// Firestore offsets are 32-bit; anything larger is past every page.
	if offset > math.MaxInt32 {
		return []domain.Quote{}, nil
	}

	iter := s.ordered(s.query(filter)).Offset(offset).Limit(page.Limit).Documents(ctx)
	defer iter.Stop()

	quotes := make([]domain.Quote, 0, min(page.Limit, 64))

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, domain.NewStoreError("find", err)
		}

		q, err := decode(snap)
		if err != nil {
			return nil, domain.NewStoreError("find", err)
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

// Count implements ports.QuoteRepository.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	if filter.Kind == domain.FilterSearch {
		var total int64

		err := s.each(ctx, filter, func(domain.Quote) bool {
			total++
			return true
		})
		if err != nil {
			return 0, domain.NewStoreError("count", err)
		}

		return total, nil
	}

	res, err := s.query(filter).NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, domain.NewStoreError("count", err)
	}

	v, ok := res[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, domain.NewStoreError("count", fmt.Errorf("unexpected aggregation result %T", res[countAlias]))
	}

	return v.GetIntegerValue(), nil
}

// Get implements ports.QuoteRepository.
func (s *Store) Get(ctx context.Context, id string) (*domain.Quote, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	snap, err := s.col.Doc(id).Get(ctx)
	if err != nil {
		return nil, translate("get", id, err)
	}

	q, err := decode(snap)
	if err != nil {
		return nil, domain.NewStoreError("get", err)
	}

	return &q, nil
}

// Insert implements ports.QuoteRepository.
func (s *Store) Insert(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	q := in.NewQuote(id.String(), s.timestamp())

	if _, err := s.col.Doc(q.ID).Create(ctx, docFromDomain(&q)); err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	return &q, nil
}

// Update implements ports.QuoteRepository.
func (s *Store) Update(ctx context.Context, id string, patch domain.QuotePatch) (*domain.Quote, error) {
	return s.modify(ctx, "update", id, func(q *domain.Quote) {
		patch.Apply(q, s.timestamp())
	})
}

// ToggleFavorite implements ports.QuoteRepository inside a Firestore transaction,
// so concurrent flips serialize instead of losing updates.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*domain.Quote, error) {
	return s.modify(ctx, "toggle_favorite", id, func(q *domain.Quote) {
		q.ToggleFavorite(s.timestamp())
	})
}

// Delete implements ports.QuoteRepository.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	if _, err := s.col.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return translate("delete", id, err)
	}

	return nil
}

func (s *Store) modify(ctx context.Context, op, id string, mutate func(q *domain.Quote)) (*domain.Quote, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	ref := s.col.Doc(id)

	var result domain.Quote

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		q, err := decode(snap)
		if err != nil {
			return err
		}

		mutate(&q)

		if err := tx.Set(ref, docFromDomain(&q)); err != nil {
			return err
		}

		result = q

		return nil
	}, firestore.MaxAttempts(maxTxnAttempts))
	if err != nil {
		return nil, translate(op, id, err)
	}

	return &result, nil
}

// query narrows the collection for filters Firestore can evaluate natively.
func (s *Store) query(filter domain.Filter) firestore.Query {
	switch filter.Kind {
	case domain.FilterFavorites:
		return s.col.Where("favorite", "==", true)
	case domain.FilterTag:
		return s.col.Where("tagKeys", "array-contains", strings.ToLower(strings.TrimSpace(filter.Term)))
	default:
		return s.col.Query
	}
}

func (s *Store) ordered(q firestore.Query) firestore.Query {
	return q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
}

// scan serves substring search, which Firestore cannot express, by filtering in process.
func (s *Store) scan(ctx context.Context, filter domain.Filter, skip, limit int) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, min(limit, 64))

	err := s.each(ctx, filter, func(q domain.Quote) bool {
		if skip > 0 {
			skip--
			return true
		}

		quotes = append(quotes, q)

		return len(quotes) < limit
	})
	if err != nil {
		return nil, domain.NewStoreError("find", err)
	}

	return quotes, nil
}

func (s *Store) each(ctx context.Context, filter domain.Filter, fn func(q domain.Quote) bool) error {
	iter := s.ordered(s.col.Query).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}

		if err != nil {
			return err
		}

		q, err := decode(snap)
		if err != nil {
			return err
		}

		if filter.Matches(&q) && !fn(q) {
			return nil
		}
	}
}

// timestamp truncates to Firestore's microsecond precision.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func decode(snap *firestore.DocumentSnapshot) (domain.Quote, error) {
	var doc quoteDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.Quote{}, fmt.Errorf("decode quote %s: %w", snap.Ref.ID, err)
	}

	return doc.toDomain(snap.Ref.ID), nil
}

// validID rejects IDs that would address a different path or nothing at all.
func validID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}

func translate(op, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	return domain.NewStoreError(op, err)
}
