package app

import (
	"context"
	"fmt"

	"github.com/iudanet/vulntracker/internal/server/config"
	"github.com/iudanet/vulntracker/internal/server/storage"
	"github.com/iudanet/vulntracker/internal/server/storage/boltdb"
	"github.com/iudanet/vulntracker/internal/server/storage/postgres"
	"github.com/iudanet/vulntracker/internal/server/storage/sqlite"
)

// OpenStorage открывает хранилище выбранного драйвера и применяет миграции
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	var (
		s   storage.Storage
		err error
	)

	// Присваиваем через err, чтобы не вернуть typed nil в интерфейсе
	switch cfg.Driver {
	case config.DriverSQLite:
		var db *sqlite.Storage
		if db, err = sqlite.New(ctx, cfg.DSN); err == nil {
			s = db
		}
	case config.DriverPostgres:
		var db *postgres.Storage
		if db, err = postgres.New(ctx, cfg.DSN); err == nil {
			s = db
		}
	case config.DriverBolt:
		var db *boltdb.Storage
		if db, err = boltdb.New(ctx, cfg.DSN); err == nil {
			s = db
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}
	return s, nil
}
