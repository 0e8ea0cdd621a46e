package indicator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"gotrader/internal/market"
)

// ErrInsufficientCandles is returned when the history is shorter than the indicator warm-up.
var ErrInsufficientCandles = errors.New("not enough candles to compute indicators")

// Settings are the indicator periods.
type Settings struct {
	BollingerWindow int
	NoOfStd         float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	RSIPeriod       int
	StochK          int
	StochSlowK      int
	StochD          int
	STCFast         int
	STCSlow         int
	STCCycle        int
}

func DefaultSettings() Settings {
	return Settings{
		BollingerWindow: 20,
		NoOfStd:         2,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		RSIPeriod:       14,
		StochK:          14,
		StochSlowK:      3,
		StochD:          3,
		STCFast:         23,
		STCSlow:         50,
		STCCycle:        10,
	}
}

// Row is one day of the indicator table.
type Row struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	RollingMean   float64   `json:"rolling_mean"`
	BollingerHigh float64   `json:"bollinger_high"`
	BollingerLow  float64   `json:"bollinger_low"`
	MACD          float64   `json:"macd"`
	MACDSignal    float64   `json:"macd_signal"`
	MACDHist      float64   `json:"macd_hist"`
	RSI           float64   `json:"rsi"`
	StochK        float64   `json:"stoch_k"`
	StochD        float64   `json:"stoch_d"`
	STC           float64   `json:"stc"`
}

// Table is a date-ordered indicator series for one symbol.
type Table struct {
	Symbol string
	Rows   []Row
}

func (t Table) Len() int { return len(t.Rows) }

// Last returns the trailing n rows (fewer if the table is shorter).
func (t Table) Last(n int) []Row {
	if n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[len(t.Rows)-n:]
}

func (t Table) Closes() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Close
	}
	return out
}

// Index finds the row for the given UTC day, -1 when absent.
func (t Table) Index(day time.Time) int {
	day = market.Day(day)
	lo, hi := 0, len(t.Rows)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch d := t.Rows[mid].Date; {
		case d.Equal(day):
			return mid
		case d.Before(day):
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// Warmup is the number of leading candles consumed before every indicator is defined.
func (s Settings) Warmup() int {
	return maxInt(
		s.BollingerWindow-1,
		s.MACDSlow-1+s.MACDSignal-1,
		s.RSIPeriod,
		s.StochK-1+s.StochSlowK-1+s.StochD-1,
		s.STCSlow-1+2*(s.STCCycle-1),
	)
}

// Build computes the indicator table for ascending daily candles and trims the warm-up rows.
func Build(symbol string, candles []market.Candle, s Settings) (Table, error) {
	warmup := s.Warmup()
	if len(candles) < warmup+2 {
		return Table{}, fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientCandles, symbol, len(candles), warmup+2)
	}
	n := len(candles)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		opens[i], highs[i], lows[i], closes[i], volumes[i] = c.Open, c.High, c.Low, c.Close, c.Volume
	}

	mean := talib.Sma(closes, s.BollingerWindow)
	std := sampleStdDev(closes, s.BollingerWindow)
	macd, signal, hist := talib.Macd(closes, s.MACDFast, s.MACDSlow, s.MACDSignal)
	rsi := talib.Rsi(closes, s.RSIPeriod)
	k, d := talib.Stoch(highs, lows, closes, s.StochK, s.StochSlowK, talib.SMA, s.StochD, talib.SMA)
	stc := schaffTrendCycle(closes, s.STCFast, s.STCSlow, s.STCCycle)

	rows := make([]Row, 0, n-warmup)
	for i := warmup; i < n; i++ {
		rows = append(rows, Row{
			Date:          candles[i].Day(),
			Open:          opens[i],
			High:          highs[i],
			Low:           lows[i],
			Close:         closes[i],
			Volume:        volumes[i],
			RollingMean:   sanitize(mean[i]),
			BollingerHigh: sanitize(mean[i] + s.NoOfStd*std[i]),
			BollingerLow:  sanitize(mean[i] - s.NoOfStd*std[i]),
			MACD:          sanitize(macd[i]),
			MACDSignal:    sanitize(signal[i]),
			MACDHist:      sanitize(hist[i]),
			RSI:           sanitize(rsi[i]),
			StochK:        sanitize(k[i]),
			StochD:        sanitize(d[i]),
			STC:           sanitize(stc[i]),
		})
	}
	return Table{Symbol: symbol, Rows: rows}, nil
}

// sampleStdDev is the rolling standard deviation with n-1 in the denominator.
func sampleStdDev(closes []float64, window int) []float64 {
	pop := talib.StdDev(closes, window, 1)
	scale := math.Sqrt(float64(window) / float64(window-1))
	out := make([]float64, len(pop))
	for i, v := range pop {
		out[i] = v * scale
	}
	return out
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func maxInt(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
