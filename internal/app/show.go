package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// Show prints the most recent persisted rows of one series.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	series, err := market.ParseSeries(opts.Series)
	if err != nil {
		return err
	}

	cal, err := a.newCalendar()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, cal.Location())
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	ds, err := store.Load(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	switch series {
	case market.SeriesGold:
		rows := ds.Gold.Tail(opts.Limit)
		if len(rows) == 0 {
			fmt.Fprintln(os.Stdout, "no rows found")
			return nil
		}
		fmt.Fprintln(writer, "Time\tPrice\tChange\tChange%\tSource")
		for _, row := range rows {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\n",
				row.Time.Format(market.TimeLayout),
				formatDecimal(row.Price, 2),
				formatDecimal(row.Change, 2),
				formatDecimal(row.ChangePercent, 2),
				row.Source,
			)
		}
	case market.SeriesIndices:
		rows := ds.Indices.Tail(opts.Limit)
		if len(rows) == 0 {
			fmt.Fprintln(os.Stdout, "no rows found")
			return nil
		}
		fmt.Fprintln(writer, "Time\tName\tPrice\tChange\tChange%")
		for _, row := range rows {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\n",
				row.Time.Format(market.TimeLayout),
				row.Name,
				formatDecimal(row.Price, 2),
				formatDecimal(row.Change, 2),
				formatDecimal(row.ChangePercent, 2),
			)
		}
	case market.SeriesExchangeRate:
		rows := ds.ExchangeRate.Tail(opts.Limit)
		if len(rows) == 0 {
			fmt.Fprintln(os.Stdout, "no rows found")
			return nil
		}
		fmt.Fprintln(writer, "Time\tName\tPrice\tSource")
		for _, row := range rows {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\n",
				row.Time.Format(market.TimeLayout),
				row.Name,
				formatDecimal(row.Price, 4),
				row.Source,
			)
		}
	}

	return writer.Flush()
}
