package trading

import (
	"github.com/shopspring/decimal"

	"gotrader/internal/ledger"
)

// side carries everything that differs between the long and the short book.
// The rules are written once against it.
type side struct {
	mode  ledger.Mode
	enter ledger.Action
	exit  ledger.Action
	hold  ledger.Action
	long  bool
}

var (
	longSide = side{
		mode:  ledger.ModeBuy,
		enter: ledger.ActionNoneToBuy,
		exit:  ledger.ActionBuyToNone,
		hold:  ledger.ActionBuyToContinueBuy,
		long:  true,
	}
	shortSide = side{
		mode:  ledger.ModeShort,
		enter: ledger.ActionNoneToShort,
		exit:  ledger.ActionShortToNone,
		hold:  ledger.ActionShortToContinueShort,
	}
)

func sideOf(mode ledger.Mode) (side, bool) {
	switch mode {
	case ledger.ModeBuy:
		return longSide, true
	case ledger.ModeShort:
		return shortSide, true
	}
	return side{}, false
}

func (s side) String() string { return string(s.mode) }

// beyond reports a strictly past b in the direction the side profits from.
func (s side) beyond(a, b decimal.Decimal) bool {
	if s.long {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// behind reports a strictly short of b in the direction the side profits from.
func (s side) behind(a, b decimal.Decimal) bool {
	return s.beyond(b, a)
}

// targetBand is the band a winning move runs into.
func (s side) targetBand(d day) decimal.Decimal {
	if s.long {
		return d.high
	}
	return d.low
}

// entryBand is the band price must break through to open the side.
func (s side) entryBand(d day) decimal.Decimal {
	if s.long {
		return d.low
	}
	return d.high
}

// stopFor places the stop pct away from price, on the losing side.
func (s side) stopFor(price, pct decimal.Decimal) decimal.Decimal {
	if s.long {
		return price.Mul(decimal.NewFromInt(1).Sub(pct))
	}
	return price.Mul(decimal.NewFromInt(1).Add(pct))
}

// shouldMoveStop only ever tightens the stop.
func (s side) shouldMoveStop(candidate, current decimal.Decimal) bool {
	if !candidate.IsPositive() {
		return false
	}
	if !current.IsPositive() {
		return true
	}
	return s.beyond(candidate, current)
}

// stopBreached reports whether price closed through the stop.
func (s side) stopBreached(stop, price decimal.Decimal) bool {
	if !stop.IsPositive() {
		return false
	}
	return s.behind(price, stop)
}

// pnl is the signed result of closing at exit a position opened at entry.
func (s side) pnl(entry, exit decimal.Decimal) decimal.Decimal {
	if s.long {
		return exit.Sub(entry)
	}
	return entry.Sub(exit)
}

func (s side) entryPrice(p *ledger.PositionLedger) *decimal.Decimal {
	if s.long {
		return &p.BuyEntryPrice
	}
	return &p.ShortEntryPrice
}

func (s side) crossedMean(p *ledger.PositionLedger) *bool {
	if s.long {
		return &p.BuyHasCrossedMean
	}
	return &p.ShortHasCrossedMean
}
