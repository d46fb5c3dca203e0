package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/szhangbiao/price-crawler/internal/alerting"
	"github.com/szhangbiao/price-crawler/internal/calendar"
	"github.com/szhangbiao/price-crawler/internal/config"
	"github.com/szhangbiao/price-crawler/internal/market"
	"github.com/szhangbiao/price-crawler/internal/monitor"
	"github.com/szhangbiao/price-crawler/internal/scheduler"
	"github.com/szhangbiao/price-crawler/internal/source"
	"github.com/szhangbiao/price-crawler/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newCalendar() (*calendar.Calendar, error) {
	return calendar.New(calendar.Options{
		Timezone:      a.Config.Calendar.Timezone,
		ExtraHolidays: a.Config.Calendar.ExtraHolidays,
		ExtraWorkdays: a.Config.Calendar.ExtraWorkdays,
	})
}

// newGoldChain builds the gold fallback chain: cngold page scrape, the
// goldprice.org feed, the juhe API, and the synthetic backstop that keeps the
// series alive when every upstream is down.
func (a *App) newGoldChain() *source.Chain[market.GoldPrice] {
	cfg := a.Config.Sources
	adapters := []source.Adapter[market.GoldPrice]{
		source.NewCngold(source.CngoldOptions{
			URL:       cfg.Gold.CngoldURL,
			Keyword:   cfg.Gold.CngoldKeyword,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
		}, a.Logger),
		source.NewGoldprice(source.GoldpriceOptions{
			BaseURL:   cfg.Gold.GoldpriceURL,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
		}, a.Logger),
		source.NewJuheGold(source.JuheGoldOptions{
			BaseURL: cfg.Gold.JuheURL,
			Key:     cfg.Gold.JuheKey,
			Variety: cfg.Gold.JuheVariety,
			Timeout: cfg.RequestTimeout,
		}, a.Logger),
		source.NewSyntheticGold(source.SyntheticGoldOptions{
			BasePrice: decimal.NewFromFloat(cfg.Gold.SyntheticBase),
		}, a.Logger),
	}
	return source.NewChain(market.SeriesGold, a.Logger, adapters...)
}

func (a *App) newIndicesChain() *source.Chain[[]market.IndexQuote] {
	cfg := a.Config.Sources
	var codes []source.IndexCode
	for _, code := range cfg.Indices.Codes {
		codes = append(codes, source.IndexCode{Code: code})
	}
	sina := source.NewSinaIndices(source.SinaOptions{
		BaseURL:   cfg.Indices.BaseURL,
		Referer:   cfg.Indices.Referer,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		Codes:     codes,
	}, a.Logger)
	return source.NewChain[[]market.IndexQuote](market.SeriesIndices, a.Logger, sina)
}

// newRateChain builds the exchange rate chain. Both vendors need credentials;
// without them the chain exhausts and the breaker eventually stops the series.
func (a *App) newRateChain() *source.Chain[market.ExchangeRate] {
	cfg := a.Config.Sources
	adapters := []source.Adapter[market.ExchangeRate]{
		source.NewJuheForex(source.JuheForexOptions{
			BaseURL: cfg.ExchangeRate.JuheURL,
			Key:     cfg.ExchangeRate.JuheKey,
			From:    cfg.ExchangeRate.From,
			To:      cfg.ExchangeRate.To,
			Timeout: cfg.RequestTimeout,
		}, a.Logger),
		source.NewMxnzp(source.MxnzpOptions{
			BaseURL:   cfg.ExchangeRate.MxnzpURL,
			AppID:     cfg.ExchangeRate.MxnzpAppID,
			AppSecret: cfg.ExchangeRate.MxnzpAppSecret,
			From:      cfg.ExchangeRate.From,
			To:        cfg.ExchangeRate.To,
			Timeout:   cfg.RequestTimeout,
		}, a.Logger),
	}
	return source.NewChain(market.SeriesExchangeRate, a.Logger, adapters...)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context, loc *time.Location) (storage.Store, error) {
	return storage.New(ctx, a.Config.Storage, loc, a.Logger)
}

func (a *App) closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("关闭存储失败")
	}
}

// Run executes the long-running monitor.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cal, err := a.newCalendar()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx, cal.Location())
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	sched := scheduler.New(scheduler.Options{
		Intervals: a.Config.Monitor.Intervals(),
		Calendar:  cal,
	}, a.Logger)

	mon := monitor.New(sched, a.newGoldChain(), a.newIndicesChain(), a.newRateChain(), store, a.newNotifier(), monitor.Options{
		TickInterval: a.Config.Monitor.TickInterval,
		Thresholds:   a.Config.Monitor.Thresholds(),
	}, a.Logger)

	a.Logger.Info().Msg("starting price monitor")
	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("price monitor stopped")
	return nil
}

// FetchOptions configure the one-shot fetch command.
type FetchOptions struct {
	Series string // empty fetches every series
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Series string
	Limit  int
}

// ExportOptions hold parameters for exporting persisted history.
type ExportOptions struct {
	Series    string
	CSVPath   string
	PNGPath   string
	Last      int
	MaxPoints int
}
