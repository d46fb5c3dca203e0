package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/market"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type stubCalendar bool

func (s stubCalendar) IsOpen(time.Time) bool { return bool(s) }

func newTestScheduler(clock *fakeClock, cal MarketCalendar) *Scheduler {
	return New(Options{
		Intervals: map[market.Series]time.Duration{
			market.SeriesGold:         30 * time.Minute,
			market.SeriesIndices:      time.Minute,
			market.SeriesExchangeRate: 30 * time.Minute,
		},
		Calendar: cal,
		Now:      clock.now,
	}, zerolog.Nop())
}

func TestFirstAttemptIsDueImmediately(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(true))
	for _, series := range market.AllSeries() {
		if !s.ShouldFetch(series) {
			t.Fatalf("%s 首次应立即到期", series)
		}
	}
}

func TestIntervalsAreIndependentPerSeries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(true))

	for _, series := range market.AllSeries() {
		s.MarkFetched(series)
	}

	clock.advance(30 * time.Second)
	for _, series := range market.AllSeries() {
		if s.ShouldFetch(series) {
			t.Fatalf("%s 在 30s 后不应到期", series)
		}
	}

	clock.advance(30 * time.Second) // t = 60s
	if !s.ShouldFetch(market.SeriesIndices) {
		t.Fatal("indices 在 60s 后应到期")
	}
	if s.ShouldFetch(market.SeriesGold) {
		t.Fatal("gold 在 60s 后不应到期")
	}
	if s.ShouldFetch(market.SeriesExchangeRate) {
		t.Fatal("exchange_rate 在 60s 后不应到期")
	}

	clock.advance(29 * time.Minute) // t = 30m
	if !s.ShouldFetch(market.SeriesGold) {
		t.Fatal("gold 在整周期后应到期")
	}
}

func TestShouldFetchIsStateless(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(true))
	s.MarkFetched(market.SeriesGold)
	clock.advance(10 * time.Second)
	first := s.ShouldFetch(market.SeriesGold)
	second := s.ShouldFetch(market.SeriesGold)
	if first != second {
		t.Fatal("未 MarkFetched 时重复查询结果应一致")
	}
}

func TestMarkFetchedAfterFailureStillDelays(t *testing.T) {
	// 失败的尝试同样推迟下一次, 避免对故障源持续施压。
	clock := &fakeClock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(true))
	s.MarkFetched(market.SeriesExchangeRate)
	clock.advance(29 * time.Minute)
	if s.ShouldFetch(market.SeriesExchangeRate) {
		t.Fatal("间隔未满不应重试")
	}
	clock.advance(time.Minute)
	if !s.ShouldFetch(market.SeriesExchangeRate) {
		t.Fatal("间隔已满应重试")
	}
}

func TestClosedMarketGatesOnlyIndices(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(false))
	if s.ShouldFetch(market.SeriesIndices) {
		t.Fatal("休市时不应抓取指数")
	}
	if !s.ShouldFetch(market.SeriesGold) {
		t.Fatal("黄金不受休市限制")
	}
	if !s.ShouldFetch(market.SeriesExchangeRate) {
		t.Fatal("汇率不受休市限制")
	}
}

func TestUnknownSeriesIsNeverDue(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock, stubCalendar(true))
	if s.ShouldFetch(market.Series("bond")) {
		t.Fatal("未配置间隔的序列不应到期")
	}
}
