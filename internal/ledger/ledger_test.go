package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gotrader/internal/coins"
)

func TestPositionLedgerDecodesDriftedValues(t *testing.T) {
	doc := `
mode: buy
buy_entry_price: "982.5"
short_entry_price: 0
stop_loss_price: 884.25
buy_has_crossed_mean: 1.0
short_has_crossed_mean: 0
position_entry_date: 2024-03-09 00:00:00
`
	var p PositionLedger
	require.NoError(t, yaml.Unmarshal([]byte(doc), &p))
	assert.Equal(t, ModeBuy, p.Mode)
	assert.True(t, p.BuyEntryPrice.Equal(decimal.RequireFromString("982.5")))
	assert.True(t, p.StopLossPrice.Equal(decimal.RequireFromString("884.25")))
	assert.True(t, p.BuyHasCrossedMean)
	assert.False(t, p.ShortHasCrossedMean)
	require.NotNil(t, p.PositionEntryDate)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), *p.PositionEntryDate)
	assert.NoError(t, p.Validate())
}

func TestPositionLedgerEncodesCanonicalTypes(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	p := PositionLedger{
		Mode:              ModeBuy,
		BuyEntryPrice:     decimal.NewFromInt(982),
		StopLossPrice:     decimal.RequireFromString("883.8"),
		BuyHasCrossedMean: true,
		PositionEntryDate: &day,
	}
	raw, err := yaml.Marshal(p)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "mode: buy\n")
	assert.Contains(t, out, "buy_entry_price: 982\n")
	assert.Contains(t, out, "stop_loss_price: 883.8\n")
	assert.Contains(t, out, "short_entry_price: 0\n")
	assert.Contains(t, out, "buy_has_crossed_mean: true\n")
	assert.Contains(t, out, "position_entry_date: 2024-03-09\n")

	var back PositionLedger
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, p.Mode, back.Mode)
	assert.True(t, p.StopLossPrice.Equal(back.StopLossPrice))
	assert.Equal(t, day, *back.PositionEntryDate)

	flat, err := yaml.Marshal(PositionLedger{Mode: ModeNone})
	require.NoError(t, err)
	assert.Contains(t, string(flat), "position_entry_date: null\n")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string]struct {
		doc    string
		target any
	}{
		"mode":   {"mode: long\n", &PositionLedger{}},
		"price":  {"mode: buy\nbuy_entry_price: abc\n", &PositionLedger{}},
		"flag":   {"buy_has_crossed_mean: 2\n", &PositionLedger{}},
		"date":   {"position_entry_date: yesterday\n", &PositionLedger{}},
		"count":  {"n_buy_won: 1.5\n", &WinLossLedger{}},
		"action": {"action_to_take: sell_everything\n", &ActionRecord{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, yaml.Unmarshal([]byte(tc.doc), tc.target))
		})
	}
}

func TestActionRecordDecodesLegacyLabel(t *testing.T) {
	var rec ActionRecord
	require.NoError(t, yaml.Unmarshal([]byte("action_to_take: short_to_contine_short\n"), &rec))
	assert.Equal(t, ActionShortToContinueShort, rec.ActionToTake)

	raw, err := yaml.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, "action_to_take: short_to_continue_short\n", string(raw))
}

func TestWinLossLedgerDecodesFloatCounters(t *testing.T) {
	doc := `
n_buy_won: 3.0
n_buy_lost: 1
n_short_won: 0
n_short_lost: 0
dollar_amount_buy_won: 300
dollar_amount_buy_lost: "100.5"
dollar_amount_short_won: 0
dollar_amount_short_lost: 0
n_total_days_in_trades: 20.0
`
	var w WinLossLedger
	require.NoError(t, yaml.Unmarshal([]byte(doc), &w))
	assert.Equal(t, 3, w.NBuyWon)
	assert.Equal(t, 4, w.Trades())
	assert.Equal(t, 5.0, w.AverageDaysInTrade())
	assert.Equal(t, 0.75, w.BatRate(ModeBuy))
	assert.InDelta(t, 300/400.5, w.WinRate(ModeBuy), 1e-12)
	assert.Equal(t, 0.0, w.BatRate(ModeShort))
	assert.Equal(t, 0.0, w.WinRate(ModeShort))
	assert.True(t, w.Lost().Equal(decimal.RequireFromString("100.5")))
}

func TestPositionInvariants(t *testing.T) {
	cases := []struct {
		name string
		p    PositionLedger
		ok   bool
	}{
		{"flat", PositionLedger{Mode: ModeNone}, true},
		{"flat with entry", PositionLedger{Mode: ModeNone, BuyEntryPrice: decimal.NewFromInt(1)}, false},
		{"buy", PositionLedger{Mode: ModeBuy, BuyEntryPrice: decimal.NewFromInt(1)}, true},
		{"buy without entry", PositionLedger{Mode: ModeBuy}, false},
		{"buy with short entry", PositionLedger{Mode: ModeBuy, BuyEntryPrice: decimal.NewFromInt(1), ShortEntryPrice: decimal.NewFromInt(1)}, false},
		{"short", PositionLedger{Mode: ModeShort, ShortEntryPrice: decimal.NewFromInt(1)}, true},
		{"negative stop", PositionLedger{Mode: ModeNone, StopLossPrice: decimal.NewFromInt(-1)}, false},
		{"unknown", PositionLedger{Mode: "long"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestActionHelpers(t *testing.T) {
	assert.True(t, ActionNoneToBuy.Entered())
	assert.True(t, ActionNoneToShort.Entered())
	assert.True(t, ActionShortToNone.Exited())
	assert.False(t, ActionBuyToContinueBuy.Exited())
	assert.False(t, Action("hold").Valid())
}

func TestStateCloneIsDeep(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := Default()
	st.Position.PositionEntryDate = &day
	cp := st.Clone()
	*cp.Position.PositionEntryDate = day.AddDate(0, 0, 1)
	assert.Equal(t, day, *st.Position.PositionEntryDate)
}

func TestFileStoreLifecycle(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load(coins.BTC)
	assert.True(t, errors.Is(err, ErrLedgerNotFound))

	created, err := store.Seed(coins.BTC, false)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = store.Seed(coins.BTC, false)
	require.NoError(t, err)
	assert.False(t, created)

	st, err := store.Load(coins.BTC)
	require.NoError(t, err)
	assert.Equal(t, ModeNone, st.Position.Mode)
	assert.Equal(t, ActionNone, st.Action.ActionToTake)

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	st.Position = PositionLedger{Mode: ModeBuy, BuyEntryPrice: decimal.NewFromInt(100), StopLossPrice: decimal.NewFromInt(90), PositionEntryDate: &day}
	st.Action.ActionToTake = ActionNoneToBuy
	st.WinLoss.NBuyWon = 2
	require.NoError(t, store.Save(coins.BTC, st))

	back, err := store.Load(coins.BTC)
	require.NoError(t, err)
	assert.Equal(t, ModeBuy, back.Position.Mode)
	assert.True(t, back.Position.StopLossPrice.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, 2, back.WinLoss.NBuyWon)
	assert.Equal(t, ActionNoneToBuy, back.Action.ActionToTake)

	raw, err := os.ReadFile(store.Paths(coins.BTC).Action)
	require.NoError(t, err)
	assert.Equal(t, "action_to_take: none_to_buy\n", string(raw))

	bad := st
	bad.Position.BuyEntryPrice = decimal.Zero
	assert.Error(t, store.Save(coins.BTC, bad))
}

func TestFileStoreSaveKeepsPositionWhenAnotherFileFails(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	held := Default()
	held.Position = PositionLedger{Mode: ModeBuy, BuyEntryPrice: decimal.NewFromInt(100), StopLossPrice: decimal.NewFromInt(90), PositionEntryDate: &day}
	held.Action.ActionToTake = ActionNoneToBuy
	require.NoError(t, store.Save(coins.ETH, held))

	// a directory in place of the action file makes its rename fail
	paths := store.Paths(coins.ETH)
	require.NoError(t, os.Remove(paths.Action))
	require.NoError(t, os.MkdirAll(filepath.Join(paths.Action, "blocked"), 0o755))

	closed := Default()
	closed.WinLoss.NBuyWon = 1
	closed.WinLoss.DollarAmountBuyWon = decimal.NewFromInt(5)
	closed.Action.ActionToTake = ActionBuyToNone
	assert.Error(t, store.Save(coins.ETH, closed))

	var pos PositionLedger
	require.NoError(t, readYAML(paths.Position, &pos))
	assert.Equal(t, ModeBuy, pos.Mode)
	assert.True(t, pos.BuyEntryPrice.Equal(decimal.NewFromInt(100)))

	var wl WinLossLedger
	require.NoError(t, readYAML(paths.WinLoss, &wl))
	assert.Equal(t, 1, wl.NBuyWon)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
