package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/config"
	"github.com/szhangbiao/price-crawler/internal/market"
)

// Supported storage drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists the accumulated dataset and restores it at startup.
// Implementations append only the rows added since the previous Save,
// or rewrite whole files where the format requires it.
type Store interface {
	Load(ctx context.Context) (*market.Dataset, error)
	Save(ctx context.Context, ds *market.Dataset) error
	Close() error
}

// New selects a backend from configuration. The location is used by the
// CSV backend to render and parse row timestamps.
func New(ctx context.Context, cfg config.StorageConfig, loc *time.Location, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverCSV, "":
		return NewCSVStore(cfg.Dir, loc, logger)
	case DriverSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("未知存储驱动 %q (可选: csv, sqlite, postgres)", cfg.Driver)
}
