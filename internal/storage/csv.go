package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// 每个序列一个文件, 与历史数据兼容的固定文件名。
const (
	goldFile    = "gold_price_data.csv"
	indicesFile = "stock_indices_data.csv"
	ratesFile   = "exchange_rate_data.csv"
)

var (
	goldHeader    = []string{"price", "change", "change_percent", "time", "update_time", "source"}
	indicesHeader = []string{"name", "price", "change", "change_percent", "time"}
	ratesHeader   = []string{"name", "desc", "price", "time", "update", "source"}
)

// CSVStore keeps one CSV file per series under a data directory. Saves
// rewrite each file through a temp file and rename, so a crash mid-save
// never leaves a torn file behind.
type CSVStore struct {
	dir    string
	loc    *time.Location
	logger zerolog.Logger
}

// NewCSVStore creates the data directory if needed.
func NewCSVStore(dir string, loc *time.Location, logger zerolog.Logger) (*CSVStore, error) {
	if dir == "" {
		dir = "data"
	}
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &CSVStore{
		dir:    dir,
		loc:    loc,
		logger: logger.With().Str("component", "csv_store").Logger(),
	}, nil
}

// Load reads the three series files. A missing or unreadable file starts
// that series from an empty table; rows that fail to parse are skipped.
func (s *CSVStore) Load(_ context.Context) (*market.Dataset, error) {
	ds := market.NewDataset()
	loadCSVTable(s, goldFile, goldHeader, s.decodeGold, ds.Gold)
	loadCSVTable(s, indicesFile, indicesHeader, s.decodeIndex, ds.Indices)
	loadCSVTable(s, ratesFile, ratesHeader, s.decodeRate, ds.ExchangeRate)
	return ds, nil
}

// Save rewrites all three series files.
func (s *CSVStore) Save(_ context.Context, ds *market.Dataset) error {
	if err := saveCSVTable(s, goldFile, goldHeader, s.encodeGold, ds.Gold.Rows()); err != nil {
		return err
	}
	if err := saveCSVTable(s, indicesFile, indicesHeader, s.encodeIndex, ds.Indices.Rows()); err != nil {
		return err
	}
	return saveCSVTable(s, ratesFile, ratesHeader, s.encodeRate, ds.ExchangeRate.Rows())
}

// Close is a no-op; files are closed per save.
func (s *CSVStore) Close() error { return nil }

func loadCSVTable[T any](s *CSVStore, name string, header []string, decode func([]string) (T, error), dst *market.Table[T]) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("file", name).Msg("数据文件不存在, 从空表开始")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("数据文件无法读取, 从空表开始")
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("数据文件损坏, 从空表开始")
		return
	}

	start := 0
	if len(records) > 0 && len(records[0]) > 0 && records[0][0] == header[0] {
		start = 1
	}

	var bad int
	for _, rec := range records[start:] {
		row, err := decode(rec)
		if err != nil {
			bad++
			continue
		}
		dst.Append(row)
	}
	if bad > 0 {
		s.logger.Warn().Int("rows", bad).Str("file", name).Msg("跳过无法解析的行")
	}
	s.logger.Info().Int("rows", dst.Len()).Str("file", name).Msg("历史数据已加载")
}

func saveCSVTable[T any](s *CSVStore, name string, header []string, encode func(T) []string, rows []T) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(encode(row))
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, writeErr)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *CSVStore) encodeGold(r market.GoldPrice) []string {
	return []string{
		r.Price.String(),
		r.Change.String(),
		r.ChangePercent.String(),
		r.Time.In(s.loc).Format(market.TimeLayout),
		r.UpdateTime,
		r.Source,
	}
}

func (s *CSVStore) decodeGold(rec []string) (market.GoldPrice, error) {
	if len(rec) != len(goldHeader) {
		return market.GoldPrice{}, fmt.Errorf("expected %d fields, got %d", len(goldHeader), len(rec))
	}
	price, err := decimal.NewFromString(rec[0])
	if err != nil {
		return market.GoldPrice{}, err
	}
	change, err := decimal.NewFromString(rec[1])
	if err != nil {
		return market.GoldPrice{}, err
	}
	percent, err := decimal.NewFromString(rec[2])
	if err != nil {
		return market.GoldPrice{}, err
	}
	ts, err := time.ParseInLocation(market.TimeLayout, rec[3], s.loc)
	if err != nil {
		return market.GoldPrice{}, err
	}
	return market.GoldPrice{
		Price:         price,
		Change:        change,
		ChangePercent: percent,
		Time:          ts,
		UpdateTime:    rec[4],
		Source:        rec[5],
	}, nil
}

func (s *CSVStore) encodeIndex(r market.IndexQuote) []string {
	return []string{
		r.Name,
		r.Price.String(),
		r.Change.String(),
		r.ChangePercent.String(),
		r.Time.In(s.loc).Format(market.TimeLayout),
	}
}

func (s *CSVStore) decodeIndex(rec []string) (market.IndexQuote, error) {
	if len(rec) != len(indicesHeader) {
		return market.IndexQuote{}, fmt.Errorf("expected %d fields, got %d", len(indicesHeader), len(rec))
	}
	price, err := decimal.NewFromString(rec[1])
	if err != nil {
		return market.IndexQuote{}, err
	}
	change, err := decimal.NewFromString(rec[2])
	if err != nil {
		return market.IndexQuote{}, err
	}
	percent, err := decimal.NewFromString(rec[3])
	if err != nil {
		return market.IndexQuote{}, err
	}
	ts, err := time.ParseInLocation(market.TimeLayout, rec[4], s.loc)
	if err != nil {
		return market.IndexQuote{}, err
	}
	return market.IndexQuote{
		Name:          rec[0],
		Price:         price,
		Change:        change,
		ChangePercent: percent,
		Time:          ts,
	}, nil
}

func (s *CSVStore) encodeRate(r market.ExchangeRate) []string {
	return []string{
		r.Name,
		r.Desc,
		r.Price.String(),
		r.Time.In(s.loc).Format(market.TimeLayout),
		r.Update,
		r.Source,
	}
}

func (s *CSVStore) decodeRate(rec []string) (market.ExchangeRate, error) {
	if len(rec) != len(ratesHeader) {
		return market.ExchangeRate{}, fmt.Errorf("expected %d fields, got %d", len(ratesHeader), len(rec))
	}
	price, err := decimal.NewFromString(rec[2])
	if err != nil {
		return market.ExchangeRate{}, err
	}
	ts, err := time.ParseInLocation(market.TimeLayout, rec[3], s.loc)
	if err != nil {
		return market.ExchangeRate{}, err
	}
	return market.ExchangeRate{
		Name:   rec[0],
		Desc:   rec[1],
		Price:  price,
		Time:   ts,
		Update: rec[4],
		Source: rec[5],
	}, nil
}

var _ Store = (*CSVStore)(nil)
