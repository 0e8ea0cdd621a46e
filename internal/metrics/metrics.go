package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gotrader/internal/ledger"
)

var modes = []ledger.Mode{ledger.ModeNone, ledger.ModeBuy, ledger.ModeShort}

// Registry holds the gotrader collectors on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Runs          *prometheus.CounterVec
	RunErrors     *prometheus.CounterVec
	ForecastPrice *prometheus.GaugeVec
	ClosePrice    *prometheus.GaugeVec
	StopLossPrice *prometheus.GaugeVec
	PositionOpen  *prometheus.GaugeVec
	Trades        *prometheus.GaugeVec
	RunDuration   *prometheus.HistogramVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gotrader_runs_total",
			Help: "Completed daily runs by coin and resulting action",
		}, []string{"coin", "action"}),
		RunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gotrader_run_errors_total",
			Help: "Failed runs by coin and pipeline stage",
		}, []string{"coin", "stage"}),
		ForecastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gotrader_forecast_price",
			Help: "Latest price forecast",
		}, []string{"coin"}),
		ClosePrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gotrader_close_price",
			Help: "Close of the latest completed day",
		}, []string{"coin"}),
		StopLossPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gotrader_stop_loss_price",
			Help: "Current stop loss price, 0 when flat",
		}, []string{"coin"}),
		PositionOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gotrader_position_open",
			Help: "1 for the coin's current position mode, 0 otherwise",
		}, []string{"coin", "mode"}),
		Trades: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gotrader_trades_total",
			Help: "Closed trades recorded in the win/loss ledger",
		}, []string{"coin", "side", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gotrader_run_duration_seconds",
			Help:    "Wall time of a daily run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"coin"}),
	}
	r.reg.MustRegister(r.Runs, r.RunErrors, r.ForecastPrice, r.ClosePrice, r.StopLossPrice,
		r.PositionOpen, r.Trades, r.RunDuration)
	return r
}

// RunResult is what a finished run reports.
type RunResult struct {
	Coin     string
	Forecast float64
	Close    float64
	State    ledger.State
	Duration time.Duration
}

func (r *Registry) ObserveRun(res RunResult) {
	st := res.State
	r.Runs.WithLabelValues(res.Coin, string(st.Action.ActionToTake)).Inc()
	r.ForecastPrice.WithLabelValues(res.Coin).Set(res.Forecast)
	r.ClosePrice.WithLabelValues(res.Coin).Set(res.Close)
	r.StopLossPrice.WithLabelValues(res.Coin).Set(st.Position.StopLossPrice.InexactFloat64())
	for _, m := range modes {
		v := 0.0
		if st.Position.Mode == m {
			v = 1
		}
		r.PositionOpen.WithLabelValues(res.Coin, string(m)).Set(v)
	}
	wl := st.WinLoss
	r.Trades.WithLabelValues(res.Coin, "buy", "won").Set(float64(wl.NBuyWon))
	r.Trades.WithLabelValues(res.Coin, "buy", "lost").Set(float64(wl.NBuyLost))
	r.Trades.WithLabelValues(res.Coin, "short", "won").Set(float64(wl.NShortWon))
	r.Trades.WithLabelValues(res.Coin, "short", "lost").Set(float64(wl.NShortLost))
	r.RunDuration.WithLabelValues(res.Coin).Observe(res.Duration.Seconds())
}

func (r *Registry) RunError(coin, stage string) {
	r.RunErrors.WithLabelValues(coin, stage).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// WriteTextfile exports the registry for the node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
