package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrader/internal/ledger"
	"gotrader/internal/trading"
)

func entry(msg string, mode ledger.Mode) trading.AuditEntry {
	return trading.AuditEntry{
		Coin:        "btc",
		Message:     msg,
		Date:        time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Close:       decimal.NewFromInt(982),
		Forecast:    decimal.NewFromInt(9000),
		HorizonDays: 7,
		Mode:        mode,
		Action:      ledger.ActionNoneToNone,
		EntryChecks: []trading.EntryCheck{{Side: ledger.ModeBuy, BandBroken: true}},
	}
}

func TestFileSinkTruncatesPerRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "btc.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("old run\n"), 0o644))

	sink := NewFileSink(path, "\n")
	require.NoError(t, sink.Record(entry("first", ledger.ModeNone)))
	require.NoError(t, sink.Record(entry("second", ledger.ModeBuy)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "old run")
	assert.Contains(t, out, "message: first")
	assert.Contains(t, out, "message: second")
	assert.Contains(t, out, "forecast for next 7 days: 9000")
	assert.Equal(t, 1, strings.Count(out, "ENTRY CHECKS"), "checks only printed while flat")

	again := NewFileSink(path, "\n")
	require.NoError(t, again.Record(entry("next run", ledger.ModeNone)))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "message: first")
}

func TestFileSinkReportsWriteErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	sink := NewFileSink(filepath.Join(blocker, "audit.log"), "")
	assert.Error(t, sink.Record(entry("x", ledger.ModeNone)))
}

func TestFormatSeparator(t *testing.T) {
	out := Format(entry("hello", ledger.ModeBuy), "<br>")
	assert.True(t, strings.HasPrefix(out, "coin: btc<br>message: hello<br>"))
	assert.Contains(t, out, "position entry date: none")
}

func TestMemorySink(t *testing.T) {
	var sink MemorySink
	require.NoError(t, sink.Record(entry("a", ledger.ModeNone)))
	require.Len(t, sink.Entries(), 1)
}
