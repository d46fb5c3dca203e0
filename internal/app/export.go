package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/szhangbiao/price-crawler/internal/market"
)

// Export renders persisted history of one series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	series, err := market.ParseSeries(opts.Series)
	if err != nil {
		return err
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

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

	switch series {
	case market.SeriesGold:
		rows := downsampleRows(ds.Gold.Tail(opts.Last), opts.MaxPoints)
		return a.exportGold(rows, opts)
	case market.SeriesIndices:
		rows := downsampleRows(ds.Indices.Tail(opts.Last), opts.MaxPoints)
		return a.exportIndices(rows, opts)
	case market.SeriesExchangeRate:
		rows := downsampleRows(ds.ExchangeRate.Tail(opts.Last), opts.MaxPoints)
		return a.exportRates(rows, opts)
	}
	return nil
}

func (a *App) exportGold(rows []market.GoldPrice, opts ExportOptions) error {
	if len(rows) == 0 {
		a.Logger.Info().Msg("no rows found for export")
		return nil
	}
	a.Logger.Info().Int("exported", len(rows)).Str("series", "gold").Msg("exporting rows")

	if opts.CSVPath != "" {
		records := make([][]string, 0, len(rows))
		for _, row := range rows {
			records = append(records, []string{
				row.Price.String(),
				row.Change.String(),
				row.ChangePercent.String(),
				row.Time.Format(market.TimeLayout),
				row.UpdateTime,
				row.Source,
			})
		}
		header := []string{"price", "change", "change_percent", "time", "update_time", "source"}
		if err := writeExportCSV(opts.CSVPath, header, records); err != nil {
			return err
		}
	}

	if opts.PNGPath == "" {
		return nil
	}

	x := make([]time.Time, len(rows))
	price := make([]float64, len(rows))
	percent := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = row.Time
		price[i] = row.Price.InexactFloat64()
		percent[i] = row.ChangePercent.InexactFloat64()
	}

	graph := newTimeChart("Price (CNY/gram)", "Change (%)")
	graph.Series = []chart.Series{
		chart.TimeSeries{
			Name:    "Gold price",
			XValues: x,
			YValues: price,
		},
		chart.TimeSeries{
			Name:    "Change %",
			XValues: x,
			YValues: percent,
			YAxis:   chart.YAxisSecondary,
		},
	}
	return renderChart(graph, opts.PNGPath)
}

func (a *App) exportIndices(rows []market.IndexQuote, opts ExportOptions) error {
	if len(rows) == 0 {
		a.Logger.Info().Msg("no rows found for export")
		return nil
	}
	a.Logger.Info().Int("exported", len(rows)).Str("series", "indices").Msg("exporting rows")

	if opts.CSVPath != "" {
		records := make([][]string, 0, len(rows))
		for _, row := range rows {
			records = append(records, []string{
				row.Name,
				row.Price.String(),
				row.Change.String(),
				row.ChangePercent.String(),
				row.Time.Format(market.TimeLayout),
			})
		}
		header := []string{"name", "price", "change", "change_percent", "time"}
		if err := writeExportCSV(opts.CSVPath, header, records); err != nil {
			return err
		}
	}

	if opts.PNGPath == "" {
		return nil
	}

	// One chart line per index, in first-seen order.
	names := make([]string, 0, 4)
	byName := make(map[string][]market.IndexQuote)
	for _, row := range rows {
		if _, ok := byName[row.Name]; !ok {
			names = append(names, row.Name)
		}
		byName[row.Name] = append(byName[row.Name], row)
	}

	graph := newTimeChart("Index points", "")
	for _, name := range names {
		quotes := byName[name]
		x := make([]time.Time, len(quotes))
		y := make([]float64, len(quotes))
		for i, q := range quotes {
			x[i] = q.Time
			y[i] = q.Price.InexactFloat64()
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    name,
			XValues: x,
			YValues: y,
		})
	}
	return renderChart(graph, opts.PNGPath)
}

func (a *App) exportRates(rows []market.ExchangeRate, opts ExportOptions) error {
	if len(rows) == 0 {
		a.Logger.Info().Msg("no rows found for export")
		return nil
	}
	a.Logger.Info().Int("exported", len(rows)).Str("series", "exchange_rate").Msg("exporting rows")

	if opts.CSVPath != "" {
		records := make([][]string, 0, len(rows))
		for _, row := range rows {
			records = append(records, []string{
				row.Name,
				row.Desc,
				row.Price.String(),
				row.Time.Format(market.TimeLayout),
				row.Update,
				row.Source,
			})
		}
		header := []string{"name", "desc", "price", "time", "update", "source"}
		if err := writeExportCSV(opts.CSVPath, header, records); err != nil {
			return err
		}
	}

	if opts.PNGPath == "" {
		return nil
	}

	x := make([]time.Time, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = row.Time
		y[i] = row.Price.InexactFloat64()
	}

	graph := newTimeChart("Rate (CNY/USD)", "")
	graph.Series = []chart.Series{
		chart.TimeSeries{
			Name:    "USD/CNY",
			XValues: x,
			YValues: y,
		},
	}
	return renderChart(graph, opts.PNGPath)
}

// downsampleRows thins evenly to max points while keeping both endpoints.
func downsampleRows[T any](rows []T, max int) []T {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]T, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeExportCSV(path string, header []string, records [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func newTimeChart(primaryAxis, secondaryAxis string) chart.Chart {
	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           primaryAxis,
			ValueFormatter: valueFormatter,
		},
	}
	if secondaryAxis != "" {
		graph.YAxisSecondary = chart.YAxis{
			Name:           secondaryAxis,
			ValueFormatter: valueFormatter,
		}
	}
	return graph
}

func renderChart(graph chart.Chart, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
