package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/market"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func sampleDataset(loc *time.Location) *market.Dataset {
	ds := market.NewDataset()
	t1 := time.Date(2025, 3, 12, 10, 0, 0, 0, loc)
	t2 := time.Date(2025, 3, 12, 10, 30, 0, 0, loc)

	gold := market.GoldPrice{
		Price:         decimal.RequireFromString("562.48"),
		Change:        decimal.RequireFromString("-1.52"),
		ChangePercent: decimal.RequireFromString("-0.27"),
		Time:          t1,
		UpdateTime:    "2025-03-12 10:00:00",
		Source:        "juhe",
	}
	ds.Gold.Append(gold)
	// 同一时间戳的重复行必须原样保留
	ds.Gold.Append(gold)

	ds.Indices.Append(
		market.IndexQuote{Name: "上证指数", Price: decimal.RequireFromString("3091.68"), Change: decimal.RequireFromString("-12.21"), ChangePercent: decimal.RequireFromString("-0.39"), Time: t1},
		market.IndexQuote{Name: "深证成指", Price: decimal.RequireFromString("9364.92"), Change: decimal.RequireFromString("-62.22"), ChangePercent: decimal.RequireFromString("-0.66"), Time: t1},
		market.IndexQuote{Name: "创业板指", Price: decimal.RequireFromString("1840.90"), Change: decimal.RequireFromString("-12.26"), ChangePercent: decimal.RequireFromString("-0.66"), Time: t2},
	)

	ds.ExchangeRate.Append(market.ExchangeRate{
		Name:   "美元/人民币",
		Desc:   "1美元可兑换7.1235人民币",
		Price:  decimal.RequireFromString("7.1235"),
		Time:   t2,
		Update: "2025-03-12 10:30:00",
		Source: "juhe",
	})
	return ds
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	want := sampleDataset(time.UTC)
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	reopened, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if got.Gold.Len() != want.Gold.Len() {
		t.Fatalf("黄金行数: got %d, want %d", got.Gold.Len(), want.Gold.Len())
	}
	for i, w := range want.Gold.Rows() {
		g := got.Gold.Rows()[i]
		if !g.Price.Equal(w.Price) || !g.Change.Equal(w.Change) || !g.ChangePercent.Equal(w.ChangePercent) {
			t.Fatalf("黄金第 %d 行数值不符: %+v", i, g)
		}
		if !g.Time.Equal(w.Time) || g.UpdateTime != w.UpdateTime || g.Source != w.Source {
			t.Fatalf("黄金第 %d 行元数据不符: %+v", i, g)
		}
	}

	if got.Indices.Len() != 3 {
		t.Fatalf("指数行数: got %d", got.Indices.Len())
	}
	for i, w := range want.Indices.Rows() {
		q := got.Indices.Rows()[i]
		if q.Name != w.Name || !q.Price.Equal(w.Price) || !q.Time.Equal(w.Time) {
			t.Fatalf("指数第 %d 行不符: %+v", i, q)
		}
	}

	if got.ExchangeRate.Len() != 1 {
		t.Fatalf("汇率行数: got %d", got.ExchangeRate.Len())
	}
	r := got.ExchangeRate.Rows()[0]
	w := want.ExchangeRate.Rows()[0]
	if r.Name != w.Name || r.Desc != w.Desc || !r.Price.Equal(w.Price) || r.Update != w.Update || r.Source != w.Source {
		t.Fatalf("汇率行不符: %+v", r)
	}
}

func TestCSVEmptyDatasetKeepsSchema(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	if err := store.Save(context.Background(), market.NewDataset()); err != nil {
		t.Fatalf("保存空数据集失败: %v", err)
	}

	// 零行文件也要有表头
	raw, err := os.ReadFile(filepath.Join(dir, goldFile))
	if err != nil {
		t.Fatalf("读取文件失败: %v", err)
	}
	if string(raw) != "price,change,change_percent,time,update_time,source\n" {
		t.Fatalf("空表文件内容错误: %q", raw)
	}

	ds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if ds.Gold.Len() != 0 || ds.Indices.Len() != 0 || ds.ExchangeRate.Len() != 0 {
		t.Fatal("空数据集往返后应仍为空")
	}
}

func TestCSVLoadMissingFilesStartsEmpty(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	ds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("缺失文件不应报错: %v", err)
	}
	if ds.Gold.Len() != 0 || ds.Indices.Len() != 0 || ds.ExchangeRate.Len() != 0 {
		t.Fatal("缺失文件应加载为空表")
	}
}

func TestCSVLoadCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	// 未闭合引号使整个文件不可解析
	corrupt := "price,change,change_percent,time,update_time,source\n562.48,\"unterminated\n"
	if err := os.WriteFile(filepath.Join(dir, goldFile), []byte(corrupt), 0o644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	store, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	ds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("损坏文件不应报错: %v", err)
	}
	if ds.Gold.Len() != 0 {
		t.Fatalf("损坏文件应加载为空表, got %d 行", ds.Gold.Len())
	}
}

func TestCSVLoadSkipsUnparsableRows(t *testing.T) {
	dir := t.TempDir()
	content := "price,change,change_percent,time,update_time,source\n" +
		"562.48,-1.52,-0.27,2025-03-12 10:00:00,10:00:00,juhe\n" +
		"abc,-1.52,-0.27,2025-03-12 10:05:00,10:05:00,juhe\n" +
		"563.10,0.62,0.11,2025-03-12 10:30:00,10:30:00,juhe\n"
	if err := os.WriteFile(filepath.Join(dir, goldFile), []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	store, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	ds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if ds.Gold.Len() != 2 {
		t.Fatalf("应跳过坏行保留 2 行, got %d", ds.Gold.Len())
	}
	if !ds.Gold.Rows()[1].Price.Equal(decimal.RequireFromString("563.10")) {
		t.Fatalf("第二行价格错误: %s", ds.Gold.Rows()[1].Price)
	}
}

func TestCSVSaveRewritesWholeFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, time.UTC, noopLogger())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	first := market.NewDataset()
	first.Gold.Append(market.GoldPrice{Price: decimal.NewFromInt(1), Change: decimal.Zero, ChangePercent: decimal.Zero, Time: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)})
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}

	second := sampleDataset(time.UTC)
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("再次保存失败: %v", err)
	}

	ds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if ds.Gold.Len() != second.Gold.Len() {
		t.Fatalf("保存应整体重写文件: got %d 行, want %d", ds.Gold.Len(), second.Gold.Len())
	}
}
