package trading

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidForecast is returned when the forecast is missing, non-finite or not positive.
var ErrInvalidForecast = errors.New("forecast must be a finite positive price")

// StaleDataError means the indicator table does not end on yesterday (UTC).
type StaleDataError struct {
	Row  string
	Want time.Time
	Got  time.Time
}

func (e *StaleDataError) Error() string {
	if e.Got.IsZero() {
		return fmt.Sprintf("stale indicator data: %s row missing, want %s", e.Row, e.Want.Format(dateLayout))
	}
	return fmt.Sprintf("stale indicator data: %s row is %s, want %s",
		e.Row, e.Got.Format(dateLayout), e.Want.Format(dateLayout))
}

// InconsistentStateError means the ledger contradicts itself or the configured capabilities.
type InconsistentStateError struct {
	Coin   string
	Reason string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent trading state for %s: %s", e.Coin, e.Reason)
}
