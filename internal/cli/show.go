package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/szhangbiao/price-crawler/internal/app"
)

var (
	showSeries string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent persisted rows of one series",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Series: showSeries,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSeries, "series", "gold", "Series to display (gold, indices, exchange_rate)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
}
