package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"gotrader/internal/coins"
	"gotrader/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// CoinSummary is the performance of one coin's closed trades.
type CoinSummary struct {
	Coin           string          `json:"coin"`
	NWon           int             `json:"n_won"`
	NLost          int             `json:"n_lost"`
	DollarsWon     decimal.Decimal `json:"dollars_won"`
	DollarsLost    decimal.Decimal `json:"dollars_lost"`
	PctReturn      decimal.Decimal `json:"pct_return"`
	AvgDaysInTrade float64         `json:"avg_days_in_trade"`
}

// Summary aggregates every coin.
type Summary struct {
	Coins          []CoinSummary   `json:"coins"`
	TotalWon       decimal.Decimal `json:"total_won"`
	TotalLost      decimal.Decimal `json:"total_lost"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	Trades         int             `json:"trades"`
	BatRate        float64         `json:"bat_rate"`
	NetPerTrade    decimal.Decimal `json:"net_per_trade"`
}

// pctReturn is (won / max(lost, 1) - 1) * 100.
func pctReturn(won, lost decimal.Decimal) decimal.Decimal {
	return won.Div(decimal.Max(lost, decimal.NewFromInt(1))).Sub(decimal.NewFromInt(1)).Mul(hundred)
}

func Summarize(ledgers map[coins.Coin]ledger.WinLossLedger) Summary {
	keys := make([]coins.Coin, 0, len(ledgers))
	for c := range ledgers {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var s Summary
	won := 0
	for _, c := range keys {
		wl := ledgers[c]
		cs := CoinSummary{
			Coin:           c.String(),
			NWon:           wl.NBuyWon + wl.NShortWon,
			NLost:          wl.NBuyLost + wl.NShortLost,
			DollarsWon:     wl.Won(),
			DollarsLost:    wl.Lost(),
			AvgDaysInTrade: wl.AverageDaysInTrade(),
		}
		cs.PctReturn = pctReturn(cs.DollarsWon, cs.DollarsLost)
		s.Coins = append(s.Coins, cs)
		s.TotalWon = s.TotalWon.Add(cs.DollarsWon)
		s.TotalLost = s.TotalLost.Add(cs.DollarsLost)
		s.Trades += cs.NWon + cs.NLost
		won += cs.NWon
	}
	s.TotalReturnPct = pctReturn(s.TotalWon, s.TotalLost)
	if s.Trades > 0 {
		s.BatRate = float64(won) / float64(s.Trades)
		s.NetPerTrade = s.TotalWon.Sub(s.TotalLost).Div(decimal.NewFromInt(int64(s.Trades)))
	}
	return s
}

// WriteText prints the summary as a plain text table.
func (s Summary) WriteText(w io.Writer) error {
	for _, c := range s.Coins {
		if _, err := fmt.Fprintf(w, "%-4s won %3d ($%s)  lost %3d ($%s)  return %s%%  avg days %.1f\n",
			c.Coin, c.NWon, c.DollarsWon.StringFixed(2), c.NLost, c.DollarsLost.StringFixed(2),
			c.PctReturn.StringFixed(2), c.AvgDaysInTrade); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total won $%s  lost $%s  return %s%%  trades %d  bat rate %.2f%%  net per trade $%s\n",
		s.TotalWon.StringFixed(2), s.TotalLost.StringFixed(2), s.TotalReturnPct.StringFixed(2),
		s.Trades, s.BatRate*100, s.NetPerTrade.StringFixed(2))
	return err
}
