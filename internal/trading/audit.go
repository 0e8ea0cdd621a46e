package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"gotrader/internal/ledger"
)

// AuditSink receives one entry per decision branch taken by the machine.
// Errors are logged and otherwise ignored.
type AuditSink interface {
	Record(entry AuditEntry) error
}

// EntryCheck is the state of the entry conditions for one side while flat.
type EntryCheck struct {
	Side             ledger.Mode `json:"side"`
	BandBroken       bool        `json:"band_broken"`
	PrevInsideBand   bool        `json:"prev_inside_band"`
	ForecastConfirms bool        `json:"forecast_confirms"`
}

// AuditEntry is a snapshot of the inputs and ledger after a decision.
type AuditEntry struct {
	Coin              string          `json:"coin"`
	Message           string          `json:"message"`
	Date              time.Time       `json:"date"`
	Close             decimal.Decimal `json:"close"`
	RollingMean       decimal.Decimal `json:"rolling_mean"`
	BollingerHigh     decimal.Decimal `json:"bollinger_high"`
	BollingerLow      decimal.Decimal `json:"bollinger_low"`
	Forecast          decimal.Decimal `json:"forecast"`
	HorizonDays       int             `json:"horizon_days"`
	Mode              ledger.Mode     `json:"mode"`
	Action            ledger.Action   `json:"action"`
	BuyEntryPrice     decimal.Decimal `json:"buy_entry_price"`
	ShortEntryPrice   decimal.Decimal `json:"short_entry_price"`
	StopLossPrice     decimal.Decimal `json:"stop_loss_price"`
	PositionEntryDate *time.Time      `json:"position_entry_date,omitempty"`
	EntryChecks       []EntryCheck    `json:"entry_checks,omitempty"`
}

type discardSink struct{}

func (discardSink) Record(AuditEntry) error { return nil }
