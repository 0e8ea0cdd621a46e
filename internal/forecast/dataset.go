package forecast

import (
	"math"

	"gotrader/internal/indicator"
	"gotrader/internal/logger"
)

// sample is one training row; t is the index into the primary table.
type sample struct {
	t int
	x []float64
	y float64
}

// dataset holds the samples of one lookback window plus the feature row of the latest day.
type dataset struct {
	window  int
	samples []sample
	latest  []float64
}

// featureBuilder turns the primary table (and date-aligned companions) into feature rows.
type featureBuilder struct {
	primary    indicator.Table
	companions []indicator.Table
	horizon    int
}

// usableCompanions keeps only companions that cover the primary's latest day.
func usableCompanions(primary indicator.Table, companions []indicator.Table) []indicator.Table {
	if primary.Len() == 0 {
		return nil
	}
	last := primary.Rows[primary.Len()-1].Date
	out := make([]indicator.Table, 0, len(companions))
	for _, c := range companions {
		if c.Index(last) < 0 {
			logger.Warnf("forecast: companion %s has no row for %s, ignoring it", c.Symbol, last.Format("2006-01-02"))
			continue
		}
		out = append(out, c)
	}
	return out
}

// features returns the feature row at index t for window l, false when a lookback is unavailable.
func (b featureBuilder) features(t, l int) ([]float64, bool) {
	rows := b.primary.Rows
	if t < l || t >= len(rows) {
		return nil, false
	}
	x := make([]float64, 0, l+7+len(b.companions))
	for k := 0; k < l; k++ {
		r, ok := logReturn(rows[t-k-1].Close, rows[t-k].Close)
		if !ok {
			return nil, false
		}
		x = append(x, r)
	}
	row := rows[t]
	x = append(x,
		ratio(row.Close-row.RollingMean, row.RollingMean),
		ratio(row.BollingerHigh-row.BollingerLow, row.RollingMean),
		row.RSI/100,
		row.StochK/100,
		row.STC/100,
		ratio(row.MACDHist, row.Close),
		volumeRatio(rows[t-l+1:t+1]),
	)
	for _, c := range b.companions {
		i := c.Index(row.Date)
		if i < l {
			return nil, false
		}
		r, ok := logReturn(c.Rows[i-l].Close, c.Rows[i].Close)
		if !ok {
			return nil, false
		}
		x = append(x, r)
	}
	return x, true
}

func (b featureBuilder) build(l int) dataset {
	rows := b.primary.Rows
	ds := dataset{window: l}
	for t := l; t+b.horizon < len(rows); t++ {
		x, ok := b.features(t, l)
		if !ok {
			continue
		}
		y, ok := logReturn(rows[t].Close, rows[t+b.horizon].Close)
		if !ok {
			continue
		}
		ds.samples = append(ds.samples, sample{t: t, x: x, y: y})
	}
	ds.latest, _ = b.features(len(rows)-1, l)
	return ds
}

func logReturn(from, to float64) (float64, bool) {
	if from <= 0 || to <= 0 {
		return 0, false
	}
	return math.Log(to / from), true
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// volumeRatio is the log of the last volume over the window average.
func volumeRatio(rows []indicator.Row) float64 {
	sum := 0.0
	for _, r := range rows {
		sum += r.Volume
	}
	last := rows[len(rows)-1].Volume
	if sum <= 0 || last <= 0 {
		return 0
	}
	return math.Log(last / (sum / float64(len(rows))))
}
