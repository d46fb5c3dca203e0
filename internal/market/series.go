package market

import "fmt"

// Series identifies one monitored data series.
type Series string

const (
	SeriesGold         Series = "gold"
	SeriesIndices      Series = "indices"
	SeriesExchangeRate Series = "exchange_rate"
)

// AllSeries returns every series in polling order.
func AllSeries() []Series {
	return []Series{SeriesGold, SeriesIndices, SeriesExchangeRate}
}

// ParseSeries maps a CLI/config token onto a Series.
func ParseSeries(s string) (Series, error) {
	switch Series(s) {
	case SeriesGold, SeriesIndices, SeriesExchangeRate:
		return Series(s), nil
	}
	return "", fmt.Errorf("未知数据序列 %q (可选: gold, indices, exchange_rate)", s)
}

func (s Series) String() string { return string(s) }

// Label returns the Chinese display name used in logs and alerts.
func (s Series) Label() string {
	switch s {
	case SeriesGold:
		return "黄金价格"
	case SeriesIndices:
		return "大盘指数"
	case SeriesExchangeRate:
		return "汇率数据"
	}
	return string(s)
}
