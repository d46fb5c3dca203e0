package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTableAppendKeepsOrder(t *testing.T) {
	tbl := NewTable[int]()
	if tbl.Len() != 0 {
		t.Fatalf("新表应为空, got %d", tbl.Len())
	}
	tbl.Append(1, 2)
	tbl.Append(3)
	if tbl.Len() != 3 {
		t.Fatalf("期望 3 行, got %d", tbl.Len())
	}
	for i, v := range tbl.Rows() {
		if v != i+1 {
			t.Fatalf("第 %d 行应为 %d, got %d", i, i+1, v)
		}
	}
}

func TestTableTail(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Append(1, 2, 3, 4)
	if got := tbl.Tail(2); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("Tail(2) 结果错误: %v", got)
	}
	if got := tbl.Tail(0); len(got) != 4 {
		t.Fatalf("Tail(0) 应返回全部行: %v", got)
	}
	if got := tbl.Tail(10); len(got) != 4 {
		t.Fatalf("Tail(10) 应返回全部行: %v", got)
	}
}

func TestDatasetStartsEmpty(t *testing.T) {
	ds := NewDataset()
	if ds.Gold.Len() != 0 || ds.Indices.Len() != 0 || ds.ExchangeRate.Len() != 0 {
		t.Fatal("新数据集的三张表都应为空")
	}
}

func TestParseSeries(t *testing.T) {
	for _, s := range AllSeries() {
		got, err := ParseSeries(string(s))
		if err != nil {
			t.Fatalf("ParseSeries(%q): %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseSeries(%q) = %q", s, got)
		}
	}
	if _, err := ParseSeries("bond"); err == nil {
		t.Fatal("未知序列应报错")
	}
}

func TestGoldPriceStatusLine(t *testing.T) {
	g := GoldPrice{
		Price:         decimal.RequireFromString("562.48"),
		Change:        decimal.RequireFromString("-1.52"),
		ChangePercent: decimal.RequireFromString("-0.27"),
		Time:          time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC),
		UpdateTime:    "2025-03-10 10:30:00",
	}
	want := "黄金价格: 562.48 元/克 | 涨跌: -1.52 | 涨跌幅: -0.27% | 更新时间: 2025-03-10 10:30:00"
	if g.String() != want {
		t.Fatalf("状态行不符:\n got %q\nwant %q", g.String(), want)
	}
}
