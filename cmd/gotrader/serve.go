package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gotrader/internal/app"
)

var runNow bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API and run the scheduled coins every day",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		d, err := app.NewDaemon(a, configPath)
		if err != nil {
			return err
		}
		d.RunImmediately(runNow)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return d.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runNow, "run-now", false, "run every coin once at startup")
}
