package cli

import (
	"github.com/spf13/cobra"

	"github.com/szhangbiao/price-crawler/internal/app"
)

var (
	exportSeries    string
	exportCSVPath   string
	exportPNGPath   string
	exportLast      int
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Series:    exportSeries,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			Last:      exportLast,
			MaxPoints: exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSeries, "series", "gold", "Series to export (gold, indices, exchange_rate)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().IntVar(&exportLast, "last", 0, "Export only the most recent N rows (0 = all)")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
