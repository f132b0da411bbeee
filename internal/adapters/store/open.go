// Package store selects and opens the quote store backend named in configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotenest/internal/adapters/store/badgerstore"
	"github.com/jsamuelsen/quotenest/internal/adapters/store/firestorestore"
	"github.com/jsamuelsen/quotenest/internal/adapters/store/postgresstore"
	"github.com/jsamuelsen/quotenest/internal/platform/config"
	"github.com/jsamuelsen/quotenest/internal/ports"
)

// Open connects to the backend selected by cfg.Driver. The caller owns the
// returned store and must Close it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.QuoteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("store", cfg.Driver))

	switch cfg.Driver {
	case config.DriverBadger:
		s, err := badgerstore.New(badgerstore.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
		}, logger)
		if err != nil {
			return nil, err
		}

		return s, nil

	case config.DriverFirestore:
		s, err := firestorestore.New(ctx, firestorestore.Config{
			ProjectID:  cfg.Firestore.ProjectID,
			DatabaseID: cfg.Firestore.Database,
			Collection: cfg.Firestore.Collection,
		}, logger)
		if err != nil {
			return nil, err
		}

		return s, nil

	case config.DriverPostgres:
		s, err := postgresstore.New(ctx, postgresstore.Config{
			DSN:          cfg.Postgres.DSN,
			AutoMigrate:  cfg.Postgres.AutoMigrate,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
		}, logger)
		if err != nil {
			return nil, err
		}

		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
