package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gotrader/internal/config"
	"gotrader/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gotrader",
	Short: "Daily forecast-driven trading state machine for BTC and ETH",
	Long: `gotrader refreshes daily candles, forecasts the price a few days ahead and
advances a per-coin position ledger by one trading day. It records the action
to take; it never places orders.`,
	SilenceUsage: true,
}

func init() {
	def := os.Getenv("GOTRADER_CONFIG")
	if def == "" {
		def = defaultConfigPath
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", def, "path to the YAML config file")
	rootCmd.AddCommand(runCmd, serveCmd, reportCmd, ledgerCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("reading .env failed: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads the config and applies its logging section. The returned
// func closes the log file, if any.
func bootstrap() (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logFile, err := setupLogOutput(cfg.ResolvePath(cfg.App.LogPath))
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	logger.Debugf("config loaded from %s (env=%s, managed=%t)", configPath, cfg.App.Env, cfg.Managed())
	closeFn := func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}
	return cfg, closeFn, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
