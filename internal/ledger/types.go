package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the position the ledger currently holds.
type Mode string

const (
	ModeNone  Mode = "no_position"
	ModeBuy   Mode = "buy"
	ModeShort Mode = "short"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeBuy, ModeShort:
		return true
	}
	return false
}

// Action labels the transition decided by the last run. It is never executed here.
type Action string

const (
	ActionNone                 Action = "none"
	ActionNoneToNone           Action = "none_to_none"
	ActionNoneToBuy            Action = "none_to_buy"
	ActionBuyToNone            Action = "buy_to_none"
	ActionBuyToContinueBuy     Action = "buy_to_continue_buy"
	ActionNoneToShort          Action = "none_to_short"
	ActionShortToNone          Action = "short_to_none"
	ActionShortToContinueShort Action = "short_to_continue_short"
)

var actions = []Action{
	ActionNone, ActionNoneToNone, ActionNoneToBuy, ActionBuyToNone, ActionBuyToContinueBuy,
	ActionNoneToShort, ActionShortToNone, ActionShortToContinueShort,
}

func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// Entered reports whether the action opened a position.
func (a Action) Entered() bool { return a == ActionNoneToBuy || a == ActionNoneToShort }

// Exited reports whether the action closed a position.
func (a Action) Exited() bool { return a == ActionBuyToNone || a == ActionShortToNone }

// PositionLedger is the persisted position of one coin.
type PositionLedger struct {
	Mode                Mode            `json:"mode"`
	BuyEntryPrice       decimal.Decimal `json:"buy_entry_price"`
	ShortEntryPrice     decimal.Decimal `json:"short_entry_price"`
	StopLossPrice       decimal.Decimal `json:"stop_loss_price"`
	BuyHasCrossedMean   bool            `json:"buy_has_crossed_mean"`
	ShortHasCrossedMean bool            `json:"short_has_crossed_mean"`
	PositionEntryDate   *time.Time      `json:"position_entry_date"`
}

// EntryPrice is the entry price of the open side, zero when flat.
func (p PositionLedger) EntryPrice() decimal.Decimal {
	switch p.Mode {
	case ModeBuy:
		return p.BuyEntryPrice
	case ModeShort:
		return p.ShortEntryPrice
	}
	return decimal.Zero
}

// Validate checks the cross-field invariants of the position.
func (p PositionLedger) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	if p.BuyEntryPrice.IsNegative() || p.ShortEntryPrice.IsNegative() || p.StopLossPrice.IsNegative() {
		return fmt.Errorf("prices must not be negative")
	}
	switch p.Mode {
	case ModeBuy:
		if !p.BuyEntryPrice.IsPositive() || !p.ShortEntryPrice.IsZero() {
			return fmt.Errorf("mode buy requires buy_entry_price > 0 and short_entry_price == 0")
		}
	case ModeShort:
		if !p.ShortEntryPrice.IsPositive() || !p.BuyEntryPrice.IsZero() {
			return fmt.Errorf("mode short requires short_entry_price > 0 and buy_entry_price == 0")
		}
	case ModeNone:
		if !p.BuyEntryPrice.IsZero() || !p.ShortEntryPrice.IsZero() {
			return fmt.Errorf("mode no_position requires both entry prices == 0")
		}
	}
	return nil
}

func (p PositionLedger) Clone() PositionLedger {
	out := p
	if p.PositionEntryDate != nil {
		d := *p.PositionEntryDate
		out.PositionEntryDate = &d
	}
	return out
}

// WinLossLedger accumulates closed-trade outcomes of one coin.
type WinLossLedger struct {
	NBuyWon               int             `json:"n_buy_won"`
	NBuyLost              int             `json:"n_buy_lost"`
	NShortWon             int             `json:"n_short_won"`
	NShortLost            int             `json:"n_short_lost"`
	DollarAmountBuyWon    decimal.Decimal `json:"dollar_amount_buy_won"`
	DollarAmountBuyLost   decimal.Decimal `json:"dollar_amount_buy_lost"`
	DollarAmountShortWon  decimal.Decimal `json:"dollar_amount_short_won"`
	DollarAmountShortLost decimal.Decimal `json:"dollar_amount_short_lost"`
	NTotalDaysInTrades    int             `json:"n_total_days_in_trades"`
}

func (w WinLossLedger) Trades() int {
	return w.NBuyWon + w.NBuyLost + w.NShortWon + w.NShortLost
}

func (w WinLossLedger) Won() decimal.Decimal {
	return w.DollarAmountBuyWon.Add(w.DollarAmountShortWon)
}

func (w WinLossLedger) Lost() decimal.Decimal {
	return w.DollarAmountBuyLost.Add(w.DollarAmountShortLost)
}

// AverageDaysInTrade is zero before the first closed trade.
func (w WinLossLedger) AverageDaysInTrade() float64 {
	if w.Trades() == 0 {
		return 0
	}
	return float64(w.NTotalDaysInTrades) / float64(w.Trades())
}

// BatRate is won trades over all trades of the side, in [0,1].
func (w WinLossLedger) BatRate(side Mode) float64 {
	won, lost := w.NBuyWon, w.NBuyLost
	if side == ModeShort {
		won, lost = w.NShortWon, w.NShortLost
	}
	if won+lost == 0 {
		return 0
	}
	return float64(won) / float64(won+lost)
}

// WinRate is dollars won over all dollars moved on the side, in [0,1].
func (w WinLossLedger) WinRate(side Mode) float64 {
	won, lost := w.DollarAmountBuyWon, w.DollarAmountBuyLost
	if side == ModeShort {
		won, lost = w.DollarAmountShortWon, w.DollarAmountShortLost
	}
	total := won.Add(lost)
	if total.IsZero() {
		return 0
	}
	return won.Div(total).InexactFloat64()
}

func (w WinLossLedger) Validate() error {
	if w.NBuyWon < 0 || w.NBuyLost < 0 || w.NShortWon < 0 || w.NShortLost < 0 || w.NTotalDaysInTrades < 0 {
		return fmt.Errorf("win/loss counters must not be negative")
	}
	for _, d := range []decimal.Decimal{w.DollarAmountBuyWon, w.DollarAmountBuyLost, w.DollarAmountShortWon, w.DollarAmountShortLost} {
		if d.IsNegative() {
			return fmt.Errorf("win/loss dollar amounts must not be negative")
		}
	}
	return nil
}

// ActionRecord is the label of the last decision.
type ActionRecord struct {
	ActionToTake Action `json:"action_to_take"`
}

// State bundles the three ledgers of one coin.
type State struct {
	Position PositionLedger `json:"position"`
	WinLoss  WinLossLedger  `json:"win_loss"`
	Action   ActionRecord   `json:"action"`
}

// Default is the seed state of a fresh coin.
func Default() State {
	return State{
		Position: PositionLedger{Mode: ModeNone},
		Action:   ActionRecord{ActionToTake: ActionNone},
	}
}

func (s State) Clone() State {
	out := s
	out.Position = s.Position.Clone()
	return out
}

func (s State) Validate() error {
	if err := s.Position.Validate(); err != nil {
		return err
	}
	if err := s.WinLoss.Validate(); err != nil {
		return err
	}
	if !s.Action.ActionToTake.Valid() {
		return fmt.Errorf("unknown action %q", s.Action.ActionToTake)
	}
	return nil
}
