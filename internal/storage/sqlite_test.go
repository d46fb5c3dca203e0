package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/market"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}

	want := sampleDataset(time.UTC)
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	reopened, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if got.Gold.Len() != want.Gold.Len() {
		t.Fatalf("黄金行数: got %d, want %d", got.Gold.Len(), want.Gold.Len())
	}
	for i, w := range want.Gold.Rows() {
		g := got.Gold.Rows()[i]
		if !g.Price.Equal(w.Price) || g.UpdateTime != w.UpdateTime || g.Source != w.Source {
			t.Fatalf("黄金第 %d 行不符: %+v", i, g)
		}
		if !g.Time.Equal(w.Time) {
			t.Fatalf("黄金第 %d 行时间不符: got %v, want %v", i, g.Time, w.Time)
		}
	}

	if got.Indices.Len() != want.Indices.Len() {
		t.Fatalf("指数行数: got %d, want %d", got.Indices.Len(), want.Indices.Len())
	}
	for i, w := range want.Indices.Rows() {
		q := got.Indices.Rows()[i]
		if q.Name != w.Name || !q.Price.Equal(w.Price) {
			t.Fatalf("指数第 %d 行不符: %+v", i, q)
		}
	}

	if got.ExchangeRate.Len() != 1 {
		t.Fatalf("汇率行数: got %d", got.ExchangeRate.Len())
	}
	r := got.ExchangeRate.Rows()[0]
	w := want.ExchangeRate.Rows()[0]
	if r.Name != w.Name || r.Desc != w.Desc || !r.Price.Equal(w.Price) || r.Update != w.Update {
		t.Fatalf("汇率行不符: %+v", r)
	}
}

func TestSQLiteSaveAppendsOnlyNewRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	defer store.Close()

	ds := market.NewDataset()
	ds.Gold.Append(market.GoldPrice{Price: decimal.NewFromInt(560), Change: decimal.Zero, ChangePercent: decimal.Zero, Time: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)})
	if err := store.Save(context.Background(), ds); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}

	ds.Gold.Append(market.GoldPrice{Price: decimal.NewFromInt(561), Change: decimal.NewFromInt(1), ChangePercent: decimal.Zero, Time: time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC)})
	if err := store.Save(context.Background(), ds); err != nil {
		t.Fatalf("再次保存失败: %v", err)
	}

	reopened, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if got.Gold.Len() != 2 {
		t.Fatalf("重复保存不应产生重复行: got %d, want 2", got.Gold.Len())
	}
	if !got.Gold.Rows()[0].Price.Equal(decimal.NewFromInt(560)) || !got.Gold.Rows()[1].Price.Equal(decimal.NewFromInt(561)) {
		t.Fatal("行顺序应与追加顺序一致")
	}
}

func TestSQLiteLoadSetsWatermark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}

	ds := market.NewDataset()
	ds.ExchangeRate.Append(market.ExchangeRate{Name: "美元/人民币", Price: decimal.RequireFromString("7.1235"), Time: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)})
	if err := store.Save(context.Background(), ds); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	reopened, err := NewSQLiteStore(path, noopLogger())
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	// 已持久化的行再次保存必须是空操作
	if err := reopened.Save(context.Background(), loaded); err != nil {
		t.Fatalf("空保存失败: %v", err)
	}

	again, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("复查加载失败: %v", err)
	}
	if again.ExchangeRate.Len() != 1 {
		t.Fatalf("加载后保存不应重复插入: got %d, want 1", again.ExchangeRate.Len())
	}
}
