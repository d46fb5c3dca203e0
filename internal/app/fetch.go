package app

import (
	"context"
	"fmt"
	"os"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// FetchOnce resolves the requested series immediately and prints the
// observations without touching the store or the scheduler.
func (a *App) FetchOnce(ctx context.Context, opts FetchOptions) error {
	wanted := market.AllSeries()
	if opts.Series != "" {
		series, err := market.ParseSeries(opts.Series)
		if err != nil {
			return err
		}
		wanted = []market.Series{series}
	}

	for _, series := range wanted {
		switch series {
		case market.SeriesGold:
			price, err := a.newGoldChain().Resolve(ctx)
			if err != nil {
				return fmt.Errorf("获取黄金价格失败: %w", err)
			}
			fmt.Fprintln(os.Stdout, price.String())
		case market.SeriesIndices:
			quotes, err := a.newIndicesChain().Resolve(ctx)
			if err != nil {
				return fmt.Errorf("获取大盘指数失败: %w", err)
			}
			for _, quote := range quotes {
				fmt.Fprintln(os.Stdout, quote.String())
			}
		case market.SeriesExchangeRate:
			rate, err := a.newRateChain().Resolve(ctx)
			if err != nil {
				return fmt.Errorf("获取汇率失败: %w", err)
			}
			fmt.Fprintln(os.Stdout, rate.String())
		}
	}
	return nil
}
