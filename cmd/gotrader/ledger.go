package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotrader/internal/coins"
	"gotrader/internal/ledger"
)

var (
	ledgerCoin  string
	ledgerForce bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the per-coin ledger files",
}

var ledgerInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default ledgers for a coin",
	RunE: func(cmd *cobra.Command, args []string) error {
		coin, err := coins.Parse(ledgerCoin)
		if err != nil {
			return err
		}
		cfg, closeLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeLog()

		store := ledger.NewFileStore(cfg.ResolvePath(cfg.Storage.LedgerDir))
		written, err := store.Seed(coin, ledgerForce)
		if err != nil {
			return err
		}
		p := store.Paths(coin)
		if !written {
			fmt.Fprintf(cmd.OutOrStdout(), "%s ledgers already exist in %s (use --force to reset)\n", coin, store.Dir)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n  %s\n  %s\n  %s\n", coin, p.Position, p.WinLoss, p.Action)
		return nil
	},
}

func init() {
	ledgerInitCmd.Flags().StringVar(&ledgerCoin, "coin", "", "coin to seed: btc or eth")
	ledgerInitCmd.Flags().BoolVar(&ledgerForce, "force", false, "overwrite existing ledgers")
	_ = ledgerInitCmd.MarkFlagRequired("coin")
	ledgerCmd.AddCommand(ledgerInitCmd)
}
