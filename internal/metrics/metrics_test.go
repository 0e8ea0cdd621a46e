package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrader/internal/ledger"
)

func buyState() ledger.State {
	st := ledger.Default()
	st.Position.Mode = ledger.ModeBuy
	st.Position.BuyEntryPrice = decimal.NewFromInt(982)
	st.Position.StopLossPrice = decimal.RequireFromString("883.8")
	st.Action.ActionToTake = ledger.ActionNoneToBuy
	st.WinLoss.NBuyWon = 2
	st.WinLoss.NBuyLost = 1
	return st
}

func TestObserveRun(t *testing.T) {
	r := New()
	r.ObserveRun(RunResult{Coin: "btc", Forecast: 9000, Close: 982, State: buyState(), Duration: 2 * time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("btc", "none_to_buy")))
	assert.Equal(t, 9000.0, testutil.ToFloat64(r.ForecastPrice.WithLabelValues("btc")))
	assert.Equal(t, 883.8, testutil.ToFloat64(r.StopLossPrice.WithLabelValues("btc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PositionOpen.WithLabelValues("btc", "buy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.PositionOpen.WithLabelValues("btc", "no_position")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Trades.WithLabelValues("btc", "buy", "won")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.RunDuration))

	r.RunError("eth", "forecast")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunErrors.WithLabelValues("eth", "forecast")))
}

func TestHandlerAndTextfile(t *testing.T) {
	r := New()
	r.ObserveRun(RunResult{Coin: "eth", Forecast: 10, Close: 9, State: ledger.Default()})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `gotrader_close_price{coin="eth"} 9`)

	path := filepath.Join(t.TempDir(), "textfile", "gotrader.prom")
	require.NoError(t, r.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `gotrader_forecast_price{coin="eth"} 10`)

	assert.NoError(t, r.WriteTextfile(""))
}
