package trading

import "gotrader/internal/logger"

// settle books the trade being closed at today's close into the win/loss ledger.
// It runs exactly once per exit, before the position fields are cleared.
func (m *Machine) settle(today day) error {
	pos := &m.state.Position
	s, ok := sideOf(pos.Mode)
	if !ok {
		return &InconsistentStateError{
			Coin:   m.coin.String(),
			Reason: "cannot settle a trade while mode is " + string(pos.Mode),
		}
	}
	entry := *s.entryPrice(pos)
	pnl := s.pnl(entry, today.close)
	wl := &m.state.WinLoss

	won := pnl.IsPositive()
	amount := pnl.Abs()
	switch {
	case s.long && won:
		wl.NBuyWon++
		wl.DollarAmountBuyWon = wl.DollarAmountBuyWon.Add(amount)
	case s.long:
		wl.NBuyLost++
		wl.DollarAmountBuyLost = wl.DollarAmountBuyLost.Add(amount)
	case won:
		wl.NShortWon++
		wl.DollarAmountShortWon = wl.DollarAmountShortWon.Add(amount)
	default:
		wl.NShortLost++
		wl.DollarAmountShortLost = wl.DollarAmountShortLost.Add(amount)
	}

	days := 0
	if pos.PositionEntryDate == nil {
		logger.Warnf("%s: closing %s without an entry date, counting 0 days", m.coin, s)
	} else {
		days = int(today.date.Sub(*pos.PositionEntryDate).Hours() / 24)
		if days < 0 {
			logger.Warnf("%s: entry date %s is after exit date %s, counting 0 days",
				m.coin, pos.PositionEntryDate.Format(dateLayout), today.date.Format(dateLayout))
			days = 0
		}
	}
	wl.NTotalDaysInTrades += days
	pos.PositionEntryDate = nil

	outcome := "lost"
	if won {
		outcome = "won"
	}
	logger.Infof("%s: %s trade %s %s after %d days (entry %s, exit %s)",
		m.coin, s, outcome, amount, days, entry, today.close)
	logger.Infof("%s: %d trades, avg %.1f days, %s bat rate %.2f, %s win rate %.2f",
		m.coin, wl.Trades(), wl.AverageDaysInTrade(),
		s, wl.BatRate(s.mode), s, wl.WinRate(s.mode))
	return nil
}
