package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrader/internal/coins"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunRejectsUnknownCoinBeforeLoadingConfig(t *testing.T) {
	_, err := execute(t, "run", "--coin_to_predict", "doge", "--config", "/does/not/exist.yaml")
	require.Error(t, err)
	var invalid *coins.InvalidCoinError
	assert.ErrorAs(t, err, &invalid)
}

func TestLedgerInit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	ledgerDir := filepath.Join(dir, "ledgers")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  ledger_dir: "+ledgerDir+"\n"), 0o644))

	out, err := execute(t, "ledger", "init", "--coin", "eth", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded eth")
	assert.FileExists(t, filepath.Join(ledgerDir, "eth_trading_state_config.yml"))

	out, err = execute(t, "ledger", "init", "--coin", "eth", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exist")

	out, err = execute(t, "report", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "eth")
	assert.Contains(t, out, "trades 0")
}
