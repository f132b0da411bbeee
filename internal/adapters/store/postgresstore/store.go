// Package postgresstore implements the quote repository on PostgreSQL through gorm.
package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// Name identifies this backend in config and health output.
const Name = "postgres"

// Config holds the connection settings.
type Config struct {
	DSN          string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
}

// Store is a quote repository backed by a gorm connection pool.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// New connects to PostgreSQL and optionally migrates the schema.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return NewFromDB(ctx, gdb, cfg, log)
}

// NewFromDB wraps an existing gorm handle.
func NewFromDB(ctx context.Context, gdb *gorm.DB, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.AutoMigrate {
		if err := Migrate(gdb.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("failed to migrate quotes schema: %w", err)
		}
	}

	log.Info("postgres store ready", slog.Bool("auto_migrate", cfg.AutoMigrate))

	return &Store{
		db:     gdb,
		logger: log,
		now:    time.Now,
	}, nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return Name
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.NewStoreError("ping", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return domain.NewStoreError("ping", err)
	}

	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	s.logger.Info("closing postgres connection pool")

	return sqlDB.Close()
}

// Find implements ports.QuoteRepository.
func (s *Store) Find(ctx context.Context, filter domain.Filter, page domain.PageRequest) ([]domain.Quote, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	page = domain.NewPageRequest(page.Page, page.Limit)

	var rows []quoteRow

	err := s.db.WithContext(ctx).
		Model(&quoteRow{}).
		Scopes(filterScope(filter)).
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.NewStoreError("find", err)
	}

	quotes := make([]domain.Quote, 0, len(rows))
	for i := range rows {
		quotes = append(quotes, rows[i].toDomain())
	}

	return quotes, nil
}

// Count implements ports.QuoteRepository.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	var total int64

	err := s.db.WithContext(ctx).
		Model(&quoteRow{}).
		Scopes(filterScope(filter)).
		Count(&total).Error
	if err != nil {
		return 0, domain.NewStoreError("count", err)
	}

	return total, nil
}

// Get implements ports.QuoteRepository.
func (s *Store) Get(ctx context.Context, id string) (*domain.Quote, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	var row quoteRow

	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get", id, err)
	}

	q := row.toDomain()

	return &q, nil
}

// Insert implements ports.QuoteRepository.
func (s *Store) Insert(ctx context.Context, in domain.QuoteInput) (*domain.Quote, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	q := in.NewQuote(id.String(), s.timestamp())
	row := rowFromDomain(&q)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, domain.NewStoreError("insert", err)
	}

	return &q, nil
}

// Update implements ports.QuoteRepository. The row is locked for the merge.
func (s *Store) Update(ctx context.Context, id string, patch domain.QuotePatch) (*domain.Quote, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	var result domain.Quote

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row quoteRow

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if err != nil {
			return err
		}

		q := row.toDomain()
		patch.Apply(&q, s.timestamp())

		updated := rowFromDomain(&q)
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		result = q

		return nil
	})
	if err != nil {
		return nil, translate("update", id, err)
	}

	return &result, nil
}

// ToggleFavorite implements ports.QuoteRepository with a single
// UPDATE ... SET favorite = NOT favorite ... RETURNING statement.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*domain.Quote, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	var rows []quoteRow

	res := s.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"favorite":   gorm.Expr("not favorite"),
			"updated_at": gorm.Expr("greatest(updated_at, ?)", s.timestamp()),
		})
	if res.Error != nil {
		return nil, domain.NewStoreError("toggle_favorite", res.Error)
	}

	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, domain.NewNotFoundError(domain.EntityQuote, id)
	}

	q := rows[0].toDomain()

	return &q, nil
}

// Delete implements ports.QuoteRepository.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	res := s.db.WithContext(ctx).Delete(&quoteRow{}, "id = ?", id)
	if res.Error != nil {
		return domain.NewStoreError("delete", res.Error)
	}

	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	return nil
}

// timestamp truncates to the column precision so returned and re-read values agree.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// validID filters out strings the uuid column would reject with a syntax error.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func translate(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(domain.EntityQuote, id)
	}

	return domain.NewStoreError(op, err)
}
