package indicator

import "github.com/markcheno/go-talib"

const stcFactor = 0.5

// schaffTrendCycle runs the EMA(fast)-EMA(slow) spread through two smoothed
// stochastic passes over cycle bars. Values are in [0,100].
func schaffTrendCycle(closes []float64, fast, slow, cycle int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	start := slow - 1
	if n <= start+2*(cycle-1) {
		return out
	}
	emaFast := talib.Ema(closes, fast)
	emaSlow := talib.Ema(closes, slow)
	spread := make([]float64, n)
	for i := start; i < n; i++ {
		spread[i] = emaFast[i] - emaSlow[i]
	}
	first := smoothedStochastic(spread, start, cycle, spreadLevel)
	return smoothedStochastic(first, start+cycle-1, cycle, percentLevel)
}

// smoothedStochastic computes %K of src over cycle bars from start and
// smooths it. A flat window repeats the previous raw %K; flatLevel maps the
// value of a flat window seen before any raw %K exists.
func smoothedStochastic(src []float64, start, cycle int, flatLevel func(float64) float64) []float64 {
	out := make([]float64, len(src))
	lows := talib.Min(src, cycle)
	highs := talib.Max(src, cycle)
	var raw, smooth float64
	seeded := false
	for i := start + cycle - 1; i < len(src); i++ {
		lo, hi := lows[i], highs[i]
		switch {
		case hi > lo:
			raw = (src[i] - lo) / (hi - lo) * 100
		case !seeded:
			raw = flatLevel(src[i])
		}
		if !seeded {
			smooth, seeded = raw, true
		} else {
			smooth += stcFactor * (raw - smooth)
		}
		out[i] = smooth
	}
	return out
}

// spreadLevel reads a flat MACD spread by its sign.
func spreadLevel(v float64) float64 {
	switch {
	case v > 0:
		return 100
	case v < 0:
		return 0
	}
	return 50
}

// percentLevel keeps an oscillator that is already on the 0..100 scale.
func percentLevel(v float64) float64 {
	return max(0, min(100, v))
}
