package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotrader/internal/app"
	"gotrader/internal/coins"
)

var coinToPredict string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline once for one coin",
	Example: `  gotrader run --coin_to_predict btc
  gotrader run --coin_to_predict eth --config configs/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		coin, err := coins.Parse(coinToPredict)
		if err != nil {
			return err
		}
		cfg, closeLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeLog()

		a, err := app.NewBuilder(cfg).Build()
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Runner.Run(cmd.Context(), coin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s (mode %s, forecast %.2f, close %.2f)\n",
			out.Coin, out.Date.Format("2006-01-02"), out.State.Action.ActionToTake,
			out.State.Position.Mode, out.Forecast.Price, out.Close)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&coinToPredict, "coin_to_predict", "", "coin to run: btc or eth")
	_ = runCmd.MarkFlagRequired("coin_to_predict")
}
