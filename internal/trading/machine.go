package trading

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"gotrader/internal/coins"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/logger"
	"gotrader/internal/market"
)

const dateLayout = "2006-01-02"

// Params are the strategy knobs of the machine.
type Params struct {
	StopLossPct   decimal.Decimal
	ShortsEnabled bool
	// HorizonDays is how far ahead the forecast looks; informational only.
	HorizonDays int
}

type Option func(*Machine)

// WithClock overrides the wall clock used to decide what "yesterday" is.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func WithAuditSink(sink AuditSink) Option {
	return func(m *Machine) {
		if sink != nil {
			m.audit = sink
		}
	}
}

// Machine advances the position of one coin by one trading day.
type Machine struct {
	coin     coins.Coin
	forecast decimal.Decimal
	rows     []indicator.Row
	state    ledger.State
	params   Params

	now   func() time.Time
	audit AuditSink
}

// day is the decimal view of an indicator row.
type day struct {
	date  time.Time
	close decimal.Decimal
	mean  decimal.Decimal
	high  decimal.Decimal
	low   decimal.Decimal
}

func dayFromRow(r indicator.Row) day {
	return day{
		date:  market.Day(r.Date),
		close: decimal.NewFromFloat(r.Close),
		mean:  decimal.NewFromFloat(r.RollingMean),
		high:  decimal.NewFromFloat(r.BollingerHigh),
		low:   decimal.NewFromFloat(r.BollingerLow),
	}
}

// New validates the inputs and takes a private copy of the ledger bundle.
func New(coinID string, forecast float64, rows []indicator.Row, state ledger.State, params Params, opts ...Option) (*Machine, error) {
	coin, err := coins.Parse(coinID)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(forecast) || math.IsInf(forecast, 0) || forecast <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidForecast, forecast)
	}
	if !params.StopLossPct.IsPositive() || params.StopLossPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("stop loss pct must be in (0,1), got %s", params.StopLossPct)
	}
	if err := state.Validate(); err != nil {
		return nil, &InconsistentStateError{Coin: coin.String(), Reason: err.Error()}
	}
	if state.Position.Mode == ledger.ModeShort && !params.ShortsEnabled {
		return nil, &InconsistentStateError{Coin: coin.String(), Reason: "ledger holds a short but shorts are disabled"}
	}
	m := &Machine{
		coin:     coin,
		forecast: decimal.NewFromFloat(forecast),
		rows:     append([]indicator.Row(nil), rows...),
		state:    state.Clone(),
		params:   params,
		now:      time.Now,
		audit:    discardSink{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns a copy of the current ledger bundle.
func (m *Machine) State() ledger.State {
	return m.state.Clone()
}

// UpdateState checks the ledger invariants and returns the canonical bundle to persist.
func (m *Machine) UpdateState() (ledger.State, error) {
	if err := m.state.Validate(); err != nil {
		return ledger.State{}, &InconsistentStateError{Coin: m.coin.String(), Reason: err.Error()}
	}
	return m.state.Clone(), nil
}

// CalculatePositions applies the day's rules. On any error the ledger is left untouched.
func (m *Machine) CalculatePositions() error {
	today, prev, err := m.lastTwoDays()
	if err != nil {
		return err
	}
	before := m.state.Clone()
	if s, open := sideOf(m.state.Position.Mode); open {
		if err := m.manage(s, today); err != nil {
			m.state = before
			return err
		}
		return nil
	}
	m.lookForEntry(today, prev)
	return nil
}

// lastTwoDays enforces that the table ends yesterday and the row before is the day prior.
func (m *Machine) lastTwoDays() (today, prev day, err error) {
	yesterday := market.Day(m.now()).AddDate(0, 0, -1)
	twoDaysAgo := yesterday.AddDate(0, 0, -1)
	n := len(m.rows)
	if n == 0 {
		return day{}, day{}, &StaleDataError{Row: "latest", Want: yesterday}
	}
	today = dayFromRow(m.rows[n-1])
	if !today.date.Equal(yesterday) {
		return day{}, day{}, &StaleDataError{Row: "latest", Want: yesterday, Got: today.date}
	}
	if n < 2 {
		return day{}, day{}, &StaleDataError{Row: "previous", Want: twoDaysAgo}
	}
	prev = dayFromRow(m.rows[n-2])
	if !prev.date.Equal(twoDaysAgo) {
		return day{}, day{}, &StaleDataError{Row: "previous", Want: twoDaysAgo, Got: prev.date}
	}
	return today, prev, nil
}

func (m *Machine) manage(s side, today day) error {
	pos := &m.state.Position
	pct := m.params.StopLossPct
	entry := *s.entryPrice(pos)

	if candidate := s.stopFor(today.close, pct); s.shouldMoveStop(candidate, pos.StopLossPrice) {
		logger.Infof("%s %s: moving stop %s -> %s", m.coin, s, pos.StopLossPrice, candidate)
		pos.StopLossPrice = candidate
		m.record(today, "stop loss moved", nil)
	}

	if s.beyond(today.close, today.mean) && !*s.crossedMean(pos) {
		*s.crossedMean(pos) = true
		m.record(today, "price crossed the rolling mean", nil)
	}

	if s.stopBreached(pos.StopLossPrice, today.close) {
		return m.exit(s, today, "stop loss hit")
	}

	if reason, ok := m.exitSignal(s, today, entry); ok {
		if s.behind(m.forecast, today.mean) || s.behind(m.forecast, entry) || s.behind(today.mean, entry) {
			return m.exit(s, today, reason)
		}
		m.state.Action.ActionToTake = s.hold
		m.record(today, reason+"; forecast says hold", nil)
		return nil
	}

	m.settleAction()
	m.record(today, "holding "+s.String(), nil)
	return nil
}

// exitSignal evaluates the rule-based exit triggers for an open side.
func (m *Machine) exitSignal(s side, today day, entry decimal.Decimal) (string, bool) {
	pos := &m.state.Position
	switch {
	case s.behind(today.close, today.mean) && *s.crossedMean(pos):
		return "price fell back through the rolling mean", true
	case s.beyond(today.close, s.targetBand(today)):
		return "price broke the target bollinger band", true
	case s.behind(today.close, s.entryBand(today)):
		return "price broke the entry bollinger band", true
	case s.behind(today.mean, entry):
		return "rolling mean moved against the entry price", true
	}
	return "", false
}

func (m *Machine) exit(s side, today day, reason string) error {
	if err := m.settle(today); err != nil {
		return err
	}
	pos := &m.state.Position
	pos.Mode = ledger.ModeNone
	*s.entryPrice(pos) = decimal.Zero
	*s.crossedMean(pos) = false
	pos.StopLossPrice = decimal.Zero
	m.state.Action.ActionToTake = s.exit
	logger.Infof("%s: exit %s at %s (%s)", m.coin, s, today.close, reason)
	m.record(today, "exit: "+reason, nil)
	return nil
}

func (m *Machine) lookForEntry(today, prev day) {
	checks := []EntryCheck{m.entryCheck(longSide, today, prev)}
	if m.params.ShortsEnabled {
		checks = append(checks, m.entryCheck(shortSide, today, prev))
	}
	for _, c := range checks {
		if !c.BandBroken || !c.PrevInsideBand {
			continue
		}
		s, _ := sideOf(c.Side)
		if !c.ForecastConfirms {
			m.state.Action.ActionToTake = ledger.ActionNoneToNone
			m.record(today, s.String()+" signal rejected by forecast", checks)
			return
		}
		m.enter(s, today)
		m.record(today, "enter "+s.String(), checks)
		return
	}
	m.settleAction()
	m.record(today, "no entry signal", checks)
}

// entryCheck: price closed through the entry band today after closing inside it
// the day before, and the forecast points past the rolling mean.
func (m *Machine) entryCheck(s side, today, prev day) EntryCheck {
	return EntryCheck{
		Side:             s.mode,
		BandBroken:       s.behind(today.close, s.entryBand(today)),
		PrevInsideBand:   s.beyond(prev.close, s.entryBand(prev)),
		ForecastConfirms: s.beyond(m.forecast, today.mean),
	}
}

func (m *Machine) enter(s side, today day) {
	pos := &m.state.Position
	pos.Mode = s.mode
	*s.entryPrice(pos) = today.close
	pos.StopLossPrice = s.stopFor(today.close, m.params.StopLossPct)
	pos.BuyHasCrossedMean = false
	pos.ShortHasCrossedMean = false
	date := today.date
	pos.PositionEntryDate = &date
	m.state.Action.ActionToTake = s.enter
	logger.Infof("%s: enter %s at %s, stop %s, forecast %s", m.coin, s, today.close, pos.StopLossPrice, m.forecast)
}

// settleAction turns yesterday's transition label into its steady-state label.
func (m *Machine) settleAction() {
	switch m.state.Action.ActionToTake {
	case ledger.ActionNoneToBuy:
		m.state.Action.ActionToTake = ledger.ActionBuyToContinueBuy
	case ledger.ActionNoneToShort:
		m.state.Action.ActionToTake = ledger.ActionShortToContinueShort
	case ledger.ActionBuyToNone, ledger.ActionShortToNone:
		m.state.Action.ActionToTake = ledger.ActionNoneToNone
	}
}

func (m *Machine) record(today day, message string, checks []EntryCheck) {
	pos := m.state.Position
	entry := AuditEntry{
		Coin:            m.coin.String(),
		Message:         message,
		Date:            today.date,
		Close:           today.close,
		RollingMean:     today.mean,
		BollingerHigh:   today.high,
		BollingerLow:    today.low,
		Forecast:        m.forecast,
		HorizonDays:     m.params.HorizonDays,
		Mode:            pos.Mode,
		Action:          m.state.Action.ActionToTake,
		BuyEntryPrice:   pos.BuyEntryPrice,
		ShortEntryPrice: pos.ShortEntryPrice,
		StopLossPrice:   pos.StopLossPrice,
		EntryChecks:     checks,
	}
	if pos.PositionEntryDate != nil {
		d := *pos.PositionEntryDate
		entry.PositionEntryDate = &d
	}
	if err := m.audit.Record(entry); err != nil {
		logger.Warnf("%s: audit record failed: %v", m.coin, err)
	}
}
