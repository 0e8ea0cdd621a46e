package market

import (
	"context"
	"time"
)

const DefaultKlineGrace = 10 * time.Second

// Source fetches closed daily candles for an exchange symbol.
type Source interface {
	// FetchDaily returns candles opened at or after since (ms, 0 for the most
	// recent limit candles) in ascending order. The still-open candle is dropped.
	FetchDaily(ctx context.Context, symbol string, since int64, limit int) ([]Candle, error)
	Name() string
}

// DropUnclosed drops the last candle if it is still in progress at now.
func DropUnclosed(candles []Candle, interval time.Duration, now time.Time) []Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	cutoff := last.OpenTime + interval.Milliseconds() + DefaultKlineGrace.Milliseconds()
	if now.UnixMilli() < cutoff {
		return candles[:len(candles)-1]
	}
	return candles
}
