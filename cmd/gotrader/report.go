package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gotrader/internal/app"
	"gotrader/internal/coins"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/logger"
	"gotrader/internal/report"
	"gotrader/internal/store/candles"
	"gotrader/internal/store/journal"
)

var (
	reportHTML string
	reportCoin string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print win/loss performance, optionally render a chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeLog()

		store := ledger.NewFileStore(cfg.ResolvePath(cfg.Storage.LedgerDir))
		ledgers := make(map[coins.Coin]ledger.WinLossLedger)
		for _, coin := range coins.All() {
			st, err := store.Load(coin)
			if errors.Is(err, ledger.ErrLedgerNotFound) {
				logger.Warnf("report: %s has no ledger yet", coin)
				continue
			}
			if err != nil {
				return err
			}
			ledgers[coin] = st.WinLoss
		}
		if err := report.Summarize(ledgers).WriteText(cmd.OutOrStdout()); err != nil {
			return err
		}
		if reportHTML == "" {
			return nil
		}

		coin, err := coins.Parse(reportCoin)
		if err != nil {
			return err
		}
		cs, err := candles.Open(cfg.ResolvePath(cfg.Storage.CandleDB))
		if err != nil {
			return err
		}
		defer cs.Close()
		history, err := cs.Load(cmd.Context(), coin.Symbol(), cfg.Market.HistoryDays)
		if err != nil {
			return err
		}
		table, err := indicator.Build(coin.Symbol(), history, app.IndicatorSettings(cfg))
		if err != nil {
			return err
		}
		var decisions []journal.DecisionRecord
		if js, err := journal.Open(cfg.ResolvePath(cfg.Storage.JournalDB)); err != nil {
			logger.Warnf("report: journal unavailable, chart has no markers: %v", err)
		} else {
			defer js.Close()
			if decisions, err = js.ListByCoin(cmd.Context(), coin.String()); err != nil {
				return err
			}
		}

		f, err := os.Create(reportHTML)
		if err != nil {
			return err
		}
		if err := report.RenderChart(f, coin, table, decisions); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", reportHTML)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportHTML, "html", "", "write an HTML chart to this file")
	reportCmd.Flags().StringVar(&reportCoin, "coin", "btc", "coin to chart with --html")
}
