package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/config"
	"github.com/szhangbiao/price-crawler/internal/market"
)

const (
	createGoldTableSQL = `CREATE TABLE IF NOT EXISTS gold_prices (
        id BIGSERIAL PRIMARY KEY,
        price NUMERIC(12,2) NOT NULL,
        change NUMERIC(12,2) NOT NULL,
        change_percent NUMERIC(8,2) NOT NULL,
        ts TIMESTAMPTZ NOT NULL,
        update_time TEXT NOT NULL DEFAULT '',
        source TEXT NOT NULL DEFAULT ''
    );`

	createIndicesTableSQL = `CREATE TABLE IF NOT EXISTS stock_indices (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        price NUMERIC(12,2) NOT NULL,
        change NUMERIC(12,2) NOT NULL,
        change_percent NUMERIC(8,2) NOT NULL,
        ts TIMESTAMPTZ NOT NULL
    );`

	createRatesTableSQL = `CREATE TABLE IF NOT EXISTS exchange_rates (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        price NUMERIC(12,4) NOT NULL,
        ts TIMESTAMPTZ NOT NULL,
        update_time TEXT NOT NULL DEFAULT '',
        source TEXT NOT NULL DEFAULT ''
    );`

	insertGoldSQL = `INSERT INTO gold_prices (
        price, change, change_percent, ts, update_time, source
    ) VALUES ($1,$2,$3,$4,$5,$6);`

	insertIndexSQL = `INSERT INTO stock_indices (
        name, price, change, change_percent, ts
    ) VALUES ($1,$2,$3,$4,$5);`

	insertRateSQL = `INSERT INTO exchange_rates (
        name, description, price, ts, update_time, source
    ) VALUES ($1,$2,$3,$4,$5,$6);`

	listGoldSQL = `SELECT price, change, change_percent, ts, update_time, source
    FROM gold_prices ORDER BY id;`

	listIndicesSQL = `SELECT name, price, change, change_percent, ts
    FROM stock_indices ORDER BY id;`

	listRatesSQL = `SELECT name, description, price, ts, update_time, source
    FROM exchange_rates ORDER BY id;`
)

// PostgresStore persists the dataset in PostgreSQL. Like the SQLite
// backend it tracks per-series watermarks and appends only new rows.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	saved  map[market.Series]int
}

// NewPostgresStore connects a pgx pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse storage dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	for _, stmt := range []string{createGoldTableSQL, createIndicesTableSQL, createRatesTableSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres_store").Logger(),
		saved:  make(map[market.Series]int, 3),
	}, nil
}

// Load restores all rows in insertion order and records the persisted
// counts as the append watermarks.
func (s *PostgresStore) Load(ctx context.Context) (*market.Dataset, error) {
	ds := market.NewDataset()

	if err := s.loadGold(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.loadIndices(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.loadRates(ctx, ds); err != nil {
		return nil, err
	}

	s.saved[market.SeriesGold] = ds.Gold.Len()
	s.saved[market.SeriesIndices] = ds.Indices.Len()
	s.saved[market.SeriesExchangeRate] = ds.ExchangeRate.Len()

	s.logger.Info().
		Int("gold", ds.Gold.Len()).
		Int("indices", ds.Indices.Len()).
		Int("exchange_rate", ds.ExchangeRate.Len()).
		Msg("历史数据已加载")
	return ds, nil
}

func (s *PostgresStore) loadGold(ctx context.Context, ds *market.Dataset) error {
	rows, err := s.pool.Query(ctx, listGoldSQL)
	if err != nil {
		return fmt.Errorf("load gold prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGoldPrice(rows)
		if err != nil {
			return err
		}
		ds.Gold.Append(g)
	}
	return rows.Err()
}

func (s *PostgresStore) loadIndices(ctx context.Context, ds *market.Dataset) error {
	rows, err := s.pool.Query(ctx, listIndicesSQL)
	if err != nil {
		return fmt.Errorf("load stock indices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanIndexQuote(rows)
		if err != nil {
			return err
		}
		ds.Indices.Append(q)
	}
	return rows.Err()
}

func (s *PostgresStore) loadRates(ctx context.Context, ds *market.Dataset) error {
	rows, err := s.pool.Query(ctx, listRatesSQL)
	if err != nil {
		return fmt.Errorf("load exchange rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanExchangeRate(rows)
		if err != nil {
			return err
		}
		ds.ExchangeRate.Append(r)
	}
	return rows.Err()
}

// Save inserts rows added since the previous Save in one transaction.
func (s *PostgresStore) Save(ctx context.Context, ds *market.Dataset) error {
	pendingGold := ds.Gold.Rows()[s.saved[market.SeriesGold]:]
	pendingIndices := ds.Indices.Rows()[s.saved[market.SeriesIndices]:]
	pendingRates := ds.ExchangeRate.Rows()[s.saved[market.SeriesExchangeRate]:]
	if len(pendingGold) == 0 && len(pendingIndices) == 0 && len(pendingRates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, g := range pendingGold {
		if _, err := tx.Exec(ctx, insertGoldSQL,
			g.Price.String(),
			g.Change.String(),
			g.ChangePercent.String(),
			g.Time,
			g.UpdateTime,
			g.Source,
		); err != nil {
			return fmt.Errorf("insert gold price: %w", err)
		}
	}
	for _, q := range pendingIndices {
		if _, err := tx.Exec(ctx, insertIndexSQL,
			q.Name,
			q.Price.String(),
			q.Change.String(),
			q.ChangePercent.String(),
			q.Time,
		); err != nil {
			return fmt.Errorf("insert index quote: %w", err)
		}
	}
	for _, r := range pendingRates {
		if _, err := tx.Exec(ctx, insertRateSQL,
			r.Name,
			r.Desc,
			r.Price.String(),
			r.Time,
			r.Update,
			r.Source,
		); err != nil {
			return fmt.Errorf("insert exchange rate: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}

	s.saved[market.SeriesGold] = ds.Gold.Len()
	s.saved[market.SeriesIndices] = ds.Indices.Len()
	s.saved[market.SeriesExchangeRate] = ds.ExchangeRate.Len()
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// decimal.Decimal 实现 sql.Scanner, pgx 走该回退路径解码 NUMERIC。
func scanGoldPrice(rows pgx.Rows) (market.GoldPrice, error) {
	var g market.GoldPrice
	if err := rows.Scan(&g.Price, &g.Change, &g.ChangePercent, &g.Time, &g.UpdateTime, &g.Source); err != nil {
		return market.GoldPrice{}, fmt.Errorf("scan gold price: %w", err)
	}
	return g, nil
}

func scanIndexQuote(rows pgx.Rows) (market.IndexQuote, error) {
	var q market.IndexQuote
	if err := rows.Scan(&q.Name, &q.Price, &q.Change, &q.ChangePercent, &q.Time); err != nil {
		return market.IndexQuote{}, fmt.Errorf("scan index quote: %w", err)
	}
	return q, nil
}

func scanExchangeRate(rows pgx.Rows) (market.ExchangeRate, error) {
	var r market.ExchangeRate
	if err := rows.Scan(&r.Name, &r.Desc, &r.Price, &r.Time, &r.Update, &r.Source); err != nil {
		return market.ExchangeRate{}, fmt.Errorf("scan exchange rate: %w", err)
	}
	return r, nil
}

var _ Store = (*PostgresStore)(nil)
