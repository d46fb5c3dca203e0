package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the wall-clock format used across persistence and display.
const TimeLayout = "2006-01-02 15:04:05"

// GoldPrice is one gold quote in CNY per gram.
type GoldPrice struct {
	Price         decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Time          time.Time
	UpdateTime    string // vendor-reported quote time, free-form
	Source        string
}

// String renders the operator status line.
func (g GoldPrice) String() string {
	return fmt.Sprintf("黄金价格: %s 元/克 | 涨跌: %s | 涨跌幅: %s%% | 更新时间: %s",
		g.Price, g.Change, g.ChangePercent, g.UpdateTime)
}

// IndexQuote is one A-share index snapshot.
type IndexQuote struct {
	Name          string
	Price         decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Time          time.Time
}

// String renders the operator status line.
func (q IndexQuote) String() string {
	return fmt.Sprintf("%s: %s | 涨跌: %s | 涨跌幅: %s%%",
		q.Name, q.Price, q.Change, q.ChangePercent)
}

// ExchangeRate is one USD/CNY quote.
type ExchangeRate struct {
	Name   string
	Desc   string
	Price  decimal.Decimal
	Time   time.Time
	Update string // vendor-reported quote time, free-form
	Source string
}

// String renders the operator status line.
func (r ExchangeRate) String() string {
	return fmt.Sprintf("汇率: %s | 描述: %s | 价格: %s | 更新时间: %s",
		r.Name, r.Desc, r.Price, r.Update)
}
