package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, rec := range []DecisionRecord{
		{RunID: "r1", Coin: "BTC", RunDate: "2024-03-01", Mode: "no_position", Action: "none_to_none", Close: 1000},
		{RunID: "r2", Coin: "btc", RunDate: "2024-03-02", Mode: "buy", Action: "none_to_buy", Close: 982, StopLossPrice: 883.8,
			LedgerJSON: datatypes.JSON(`{"position":{"mode":"buy"}}`)},
		{RunID: "r3", Coin: "eth", RunDate: "2024-03-02", Mode: "no_position", Action: "none", Close: 50},
	} {
		rec := rec
		require.NoError(t, s.Insert(ctx, &rec))
		assert.NotZero(t, rec.ID)
		assert.NotZero(t, rec.CreatedAtUnix)
	}

	recent, err := s.ListRecent(ctx, "btc", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "r2", recent[0].RunID)
	assert.Equal(t, 883.8, recent[0].StopLossPrice)
	assert.JSONEq(t, `{"position":{"mode":"buy"}}`, string(recent[0].LedgerJSON))

	all, err := s.ListByCoin(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].RunID)
	assert.Equal(t, "r2", all[1].RunID)

	none, err := s.ListByCoin(ctx, "doge")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertRequiresCoin(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Insert(context.Background(), &DecisionRecord{RunDate: "2024-03-01"}))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
