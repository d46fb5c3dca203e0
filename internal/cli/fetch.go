package cli

import (
	"github.com/spf13/cobra"

	"github.com/szhangbiao/price-crawler/internal/app"
)

var fetchSeries string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch each series once and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.FetchOptions{
			Series: fetchSeries,
		}
		return getApp().FetchOnce(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSeries, "series", "", "Series to fetch (gold, indices, exchange_rate); empty fetches all")
}
