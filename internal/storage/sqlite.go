package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/szhangbiao/price-crawler/internal/market"
)

type goldRow struct {
	ID            uint            `gorm:"primaryKey"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Change        decimal.Decimal `gorm:"type:decimal(12,2)"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(8,2)"`
	Time          time.Time
	UpdateTime    string
	Source        string
}

func (goldRow) TableName() string { return "gold_prices" }

type indexRow struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"index"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Change        decimal.Decimal `gorm:"type:decimal(12,2)"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(8,2)"`
	Time          time.Time
}

func (indexRow) TableName() string { return "stock_indices" }

type rateRow struct {
	ID     uint            `gorm:"primaryKey"`
	Name   string          `gorm:"index"`
	Desc   string          `gorm:"column:description"`
	Price  decimal.Decimal `gorm:"type:decimal(12,4)"`
	Time   time.Time
	Update string `gorm:"column:update_time"`
	Source string
}

func (rateRow) TableName() string { return "exchange_rates" }

// SQLiteStore persists the dataset in a single pure-Go SQLite file.
// Rows already persisted are tracked per series, so each Save appends
// only what arrived since the last one.
type SQLiteStore struct {
	db     *gorm.DB
	logger zerolog.Logger
	saved  map[market.Series]int
}

// NewSQLiteStore opens (creating if needed) the database and migrates
// the three series tables.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join("data", "price_data.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&goldRow{}, &indexRow{}, &rateRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite_store").Logger(),
		saved:  make(map[market.Series]int, 3),
	}, nil
}

// Load restores all rows in insertion order and records the persisted
// counts as the append watermarks.
func (s *SQLiteStore) Load(ctx context.Context) (*market.Dataset, error) {
	ds := market.NewDataset()

	var golds []goldRow
	if err := s.db.WithContext(ctx).Order("id").Find(&golds).Error; err != nil {
		return nil, fmt.Errorf("load gold prices: %w", err)
	}
	for _, r := range golds {
		ds.Gold.Append(market.GoldPrice{
			Price:         r.Price,
			Change:        r.Change,
			ChangePercent: r.ChangePercent,
			Time:          r.Time,
			UpdateTime:    r.UpdateTime,
			Source:        r.Source,
		})
	}

	var indices []indexRow
	if err := s.db.WithContext(ctx).Order("id").Find(&indices).Error; err != nil {
		return nil, fmt.Errorf("load stock indices: %w", err)
	}
	for _, r := range indices {
		ds.Indices.Append(market.IndexQuote{
			Name:          r.Name,
			Price:         r.Price,
			Change:        r.Change,
			ChangePercent: r.ChangePercent,
			Time:          r.Time,
		})
	}

	var rates []rateRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("load exchange rates: %w", err)
	}
	for _, r := range rates {
		ds.ExchangeRate.Append(market.ExchangeRate{
			Name:   r.Name,
			Desc:   r.Desc,
			Price:  r.Price,
			Time:   r.Time,
			Update: r.Update,
			Source: r.Source,
		})
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

// Save appends rows added since the previous Save in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, ds *market.Dataset) error {
	pendingGold := ds.Gold.Rows()[s.saved[market.SeriesGold]:]
	pendingIndices := ds.Indices.Rows()[s.saved[market.SeriesIndices]:]
	pendingRates := ds.ExchangeRate.Rows()[s.saved[market.SeriesExchangeRate]:]
	if len(pendingGold) == 0 && len(pendingIndices) == 0 && len(pendingRates) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(pendingGold) > 0 {
			rows := make([]goldRow, len(pendingGold))
			for i, g := range pendingGold {
				rows[i] = goldRow{
					Price:         g.Price,
					Change:        g.Change,
					ChangePercent: g.ChangePercent,
					Time:          g.Time,
					UpdateTime:    g.UpdateTime,
					Source:        g.Source,
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert gold prices: %w", err)
			}
		}
		if len(pendingIndices) > 0 {
			rows := make([]indexRow, len(pendingIndices))
			for i, q := range pendingIndices {
				rows[i] = indexRow{
					Name:          q.Name,
					Price:         q.Price,
					Change:        q.Change,
					ChangePercent: q.ChangePercent,
					Time:          q.Time,
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert stock indices: %w", err)
			}
		}
		if len(pendingRates) > 0 {
			rows := make([]rateRow, len(pendingRates))
			for i, r := range pendingRates {
				rows[i] = rateRow{
					Name:   r.Name,
					Desc:   r.Desc,
					Price:  r.Price,
					Time:   r.Time,
					Update: r.Update,
					Source: r.Source,
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert exchange rates: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.saved[market.SeriesGold] = ds.Gold.Len()
	s.saved[market.SeriesIndices] = ds.Indices.Len()
	s.saved[market.SeriesExchangeRate] = ds.ExchangeRate.Len()
	return nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*SQLiteStore)(nil)
