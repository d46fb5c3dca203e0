package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// MarketCalendar gates series that only move during trading hours.
type MarketCalendar interface {
	IsOpen(t time.Time) bool
}

// Options tune per-series polling cadence.
type Options struct {
	// Intervals holds the minimum spacing between fetch attempts per series.
	Intervals map[market.Series]time.Duration
	// Calendar suppresses index fetches outside trading hours. May be nil.
	Calendar MarketCalendar
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Scheduler decides when each data series is due for a fetch attempt.
// A series never attempted before is due immediately.
type Scheduler struct {
	opts      Options
	now       func() time.Time
	lastFetch map[market.Series]time.Time
	logger    zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if len(opts.Intervals) == 0 {
		panic("scheduler requires at least one interval")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		opts:      opts,
		now:       now,
		lastFetch: make(map[market.Series]time.Time, len(opts.Intervals)),
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// ShouldFetch reports whether the series is due. It never mutates state:
// calling it any number of times without MarkFetched yields the same answer
// for the same clock reading.
func (s *Scheduler) ShouldFetch(series market.Series) bool {
	interval, ok := s.opts.Intervals[series]
	if !ok {
		s.logger.Warn().Str("series", series.String()).Msg("series has no configured interval")
		return false
	}
	now := s.now()
	if last, ok := s.lastFetch[series]; ok && now.Sub(last) < interval {
		return false
	}
	if series == market.SeriesIndices && s.opts.Calendar != nil && !s.opts.Calendar.IsOpen(now) {
		s.logger.Debug().Str("series", series.String()).Msg("市场休市, 跳过抓取")
		return false
	}
	return true
}

// MarkFetched records an attempt for the series, successful or not, so the
// next attempt waits a full interval.
func (s *Scheduler) MarkFetched(series market.Series) {
	now := s.now()
	s.lastFetch[series] = now
	if interval, ok := s.opts.Intervals[series]; ok {
		s.logger.Debug().
			Str("series", series.String()).
			Time("next_due", now.Add(interval)).
			Msg("fetch attempt recorded")
	}
}
