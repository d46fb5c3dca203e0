package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/szhangbiao/price-crawler/internal/alerting"
	"github.com/szhangbiao/price-crawler/internal/market"
	"github.com/szhangbiao/price-crawler/internal/scheduler"
	"github.com/szhangbiao/price-crawler/internal/storage"
)

// State tracks the monitor lifecycle.
type State int

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	// DefaultTickInterval is the pause between polling rounds.
	DefaultTickInterval = 10 * time.Second
	// DefaultFailureThreshold stops a series after this many consecutive
	// failed fetches. Zero disables the breaker.
	DefaultFailureThreshold = 3

	saveTimeout = 10 * time.Second
)

// GoldResolver yields the next gold price observation.
type GoldResolver interface {
	Resolve(ctx context.Context) (market.GoldPrice, error)
}

// IndicesResolver yields one quote per configured index.
type IndicesResolver interface {
	Resolve(ctx context.Context) ([]market.IndexQuote, error)
}

// RateResolver yields the next exchange rate observation.
type RateResolver interface {
	Resolve(ctx context.Context) (market.ExchangeRate, error)
}

// Options tune the monitor loop.
type Options struct {
	// TickInterval is the sleep between polling rounds; defaults to
	// DefaultTickInterval.
	TickInterval time.Duration
	// Thresholds holds per-series circuit breaker limits. A nil map applies
	// DefaultFailureThreshold to every series; an explicit zero disables the
	// breaker for that series.
	Thresholds map[market.Series]int
	// Out receives the human-readable status lines; defaults to os.Stdout.
	Out io.Writer
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Monitor orchestrates scheduling, fetching, persistence, and alerting.
// It runs on a single goroutine: each tick polls the due series in a fixed
// order (gold, indices, exchange rate) and then sleeps.
type Monitor struct {
	sched    *scheduler.Scheduler
	gold     GoldResolver
	indices  IndicesResolver
	rate     RateResolver
	store    storage.Store
	notifier alerting.Notifier
	logger   zerolog.Logger

	tick       time.Duration
	thresholds map[market.Series]int
	out        io.Writer
	now        func() time.Time

	state        State
	failures     map[market.Series]int
	tickPanicked bool
}

// New constructs the monitor. A nil resolver disables its series.
func New(sched *scheduler.Scheduler, gold GoldResolver, indices IndicesResolver, rate RateResolver, store storage.Store, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Monitor {
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	thresholds := opts.Thresholds
	if thresholds == nil {
		thresholds = make(map[market.Series]int, len(market.AllSeries()))
		for _, s := range market.AllSeries() {
			thresholds[s] = DefaultFailureThreshold
		}
	}

	return &Monitor{
		sched:      sched,
		gold:       gold,
		indices:    indices,
		rate:       rate,
		store:      store,
		notifier:   notifier,
		logger:     logger.With().Str("component", "monitor").Logger(),
		tick:       tick,
		thresholds: thresholds,
		out:        out,
		now:        now,
		failures:   make(map[market.Series]int),
	}
}

// State reports the lifecycle phase. The loop is single-goroutine, so the
// value is only meaningful before Run starts or after it returns.
func (m *Monitor) State() State {
	return m.state
}

// Run drives the polling loop until the context is cancelled or a circuit
// breaker trips. The accumulated dataset is saved on the way out.
func (m *Monitor) Run(ctx context.Context) error {
	if m.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if m.store == nil {
		return fmt.Errorf("store not configured")
	}

	ds, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	m.logger.Info().
		Int("gold_rows", ds.Gold.Len()).
		Int("index_rows", ds.Indices.Len()).
		Int("rate_rows", ds.ExchangeRate.Len()).
		Dur("tick", m.tick).
		Msg("开始监控")

	m.state = StateRunning
	for m.state == StateRunning {
		m.runTick(ctx, ds)
		if m.state != StateRunning {
			break
		}
		if !m.sleep(ctx) {
			m.state = StateStopping
		}
	}

	m.state = StateStopping
	m.persist(ds)
	m.state = StateStopped
	m.logger.Info().Msg("监控已停止")
	return nil
}

// runTick 执行单轮采集逻辑。
func (m *Monitor) runTick(ctx context.Context, ds *market.Dataset) {
	defer m.recoverTick(ds)

	updated := false
	if m.pollGold(ctx, ds) {
		updated = true
	}
	if m.state == StateRunning && m.pollIndices(ctx, ds) {
		updated = true
	}
	if m.state == StateRunning && m.pollRate(ctx, ds) {
		updated = true
	}

	if !updated {
		return
	}
	if err := m.store.Save(ctx, ds); err != nil {
		m.logger.Error().Err(err).Msg("保存数据失败")
	}
	fmt.Fprintf(m.out, "更新时间: %s\n", m.now().Format(market.TimeLayout))
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
}

// recoverTick keeps one bad tick from killing the loop. A second panic in a
// row stops the monitor instead of looping on a persistent fault.
func (m *Monitor) recoverTick(ds *market.Dataset) {
	r := recover()
	if r == nil {
		m.tickPanicked = false
		return
	}
	m.logger.Error().
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("轮询异常, 已恢复")
	m.persist(ds)
	if m.tickPanicked {
		m.logger.Error().Msg("连续两次轮询异常, 停止监控")
		m.state = StateStopping
		return
	}
	m.tickPanicked = true
}

func (m *Monitor) pollGold(ctx context.Context, ds *market.Dataset) bool {
	if m.gold == nil || !m.sched.ShouldFetch(market.SeriesGold) {
		return false
	}
	price, err := m.gold.Resolve(ctx)
	m.sched.MarkFetched(market.SeriesGold)
	if err != nil {
		m.recordFailure(ctx, market.SeriesGold, err)
		return false
	}
	m.recordSuccess(market.SeriesGold)
	ds.Gold.Append(price)
	fmt.Fprintln(m.out, price.String())
	return true
}

func (m *Monitor) pollIndices(ctx context.Context, ds *market.Dataset) bool {
	if m.indices == nil || !m.sched.ShouldFetch(market.SeriesIndices) {
		return false
	}
	quotes, err := m.indices.Resolve(ctx)
	m.sched.MarkFetched(market.SeriesIndices)
	if err != nil {
		m.recordFailure(ctx, market.SeriesIndices, err)
		return false
	}
	m.recordSuccess(market.SeriesIndices)
	ds.Indices.Append(quotes...)
	for _, q := range quotes {
		fmt.Fprintln(m.out, q.String())
	}
	return len(quotes) > 0
}

func (m *Monitor) pollRate(ctx context.Context, ds *market.Dataset) bool {
	if m.rate == nil || !m.sched.ShouldFetch(market.SeriesExchangeRate) {
		return false
	}
	rate, err := m.rate.Resolve(ctx)
	m.sched.MarkFetched(market.SeriesExchangeRate)
	if err != nil {
		m.recordFailure(ctx, market.SeriesExchangeRate, err)
		return false
	}
	m.recordSuccess(market.SeriesExchangeRate)
	ds.ExchangeRate.Append(rate)
	fmt.Fprintln(m.out, rate.String())
	return true
}

func (m *Monitor) recordFailure(ctx context.Context, series market.Series, err error) {
	m.failures[series]++
	count := m.failures[series]
	threshold := m.thresholds[series]

	m.logger.Warn().Err(err).
		Str("series", series.String()).
		Int("consecutive_failures", count).
		Msg("数据获取失败")

	if threshold <= 0 || count < threshold {
		return
	}

	m.logger.Error().
		Str("series", series.String()).
		Int("failures", count).
		Int("threshold", threshold).
		Msg(series.Label() + " 连续获取失败, 触发熔断")
	m.state = StateStopping

	if m.notifier == nil {
		return
	}
	note := alerting.Notification{
		Series:    series,
		Failures:  count,
		Threshold: threshold,
		LastError: err.Error(),
		Time:      m.now(),
	}
	if nerr := m.notifier.Notify(ctx, note); nerr != nil {
		m.logger.Error().Err(nerr).Msg("failed to dispatch alert")
	}
}

func (m *Monitor) recordSuccess(series market.Series) {
	if m.failures[series] == 0 {
		return
	}
	m.logger.Debug().
		Str("series", series.String()).
		Int("previous_failures", m.failures[series]).
		Msg("fetch recovered, failure counter reset")
	m.failures[series] = 0
}

// sleep waits one tick; false means the context was cancelled.
func (m *Monitor) sleep(ctx context.Context) bool {
	timer := time.NewTimer(m.tick)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		m.logger.Info().Msg("收到停止信号")
		return false
	case <-timer.C:
		return true
	}
}

// persist writes the dataset under a fresh deadline, independent of the run
// context which may already be cancelled.
func (m *Monitor) persist(ds *market.Dataset) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.store.Save(ctx, ds); err != nil {
		m.logger.Error().Err(err).Msg("保存数据失败")
		return
	}
	m.logger.Info().Msg("数据已保存")
}
