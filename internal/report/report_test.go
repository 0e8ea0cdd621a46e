package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrader/internal/coins"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/store/journal"
)

func TestSummarize(t *testing.T) {
	s := Summarize(map[coins.Coin]ledger.WinLossLedger{
		coins.BTC: {
			NBuyWon: 3, NBuyLost: 1,
			DollarAmountBuyWon:  decimal.NewFromInt(300),
			DollarAmountBuyLost: decimal.NewFromInt(100),
			NTotalDaysInTrades:  20,
		},
		coins.ETH: {
			NBuyLost:            1,
			DollarAmountBuyLost: decimal.RequireFromString("0.5"),
		},
	})

	require.Len(t, s.Coins, 2)
	btc, eth := s.Coins[0], s.Coins[1]
	assert.Equal(t, "btc", btc.Coin)
	assert.True(t, btc.PctReturn.Equal(decimal.NewFromInt(200)), btc.PctReturn.String())
	assert.Equal(t, 5.0, btc.AvgDaysInTrade)
	// lost under one dollar is floored to one
	assert.True(t, eth.PctReturn.Equal(decimal.NewFromInt(-100)), eth.PctReturn.String())

	assert.Equal(t, 5, s.Trades)
	assert.InDelta(t, 0.6, s.BatRate, 1e-12)
	assert.True(t, s.TotalWon.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.NetPerTrade.Equal(decimal.RequireFromString("39.9")), s.NetPerTrade.String())

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), "return 200.00%")
	assert.Contains(t, buf.String(), "bat rate 60.00%")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.BatRate)
	assert.True(t, s.NetPerTrade.IsZero())
}

func chartTable() indicator.Table {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]indicator.Row, 5)
	for i := range rows {
		c := 1000 + float64(i)*10
		rows[i] = indicator.Row{Date: start.AddDate(0, 0, i), Close: c, RollingMean: c - 5, BollingerHigh: c + 20, BollingerLow: c - 30}
	}
	return indicator.Table{Symbol: "BTCUSDT", Rows: rows}
}

func TestMarkers(t *testing.T) {
	table := chartTable()
	entries, exits := markers(table, []journal.DecisionRecord{
		{RunDate: "2024-03-02", Action: "none_to_buy", Close: 1010},
		{RunDate: "2024-03-04", Action: "buy_to_none", Close: 1030},
		{RunDate: "2024-03-05", Action: "buy_to_continue_buy", Close: 1040},
		{RunDate: "2023-01-01", Action: "none_to_buy", Close: 1},
	})
	assert.Equal(t, 1010.0, entries[1].Value)
	assert.Nil(t, entries[0].Value)
	assert.Equal(t, 1030.0, exits[3].Value)
	assert.Nil(t, exits[4].Value)
	assert.Nil(t, entries[4].Value)
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, coins.BTC, chartTable(), nil))
	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"))
	assert.Contains(t, html, "BTC daily")

	assert.Error(t, RenderChart(&buf, coins.ETH, indicator.Table{}, nil))
}
