package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gotrader/internal/coins"
	"gotrader/internal/forecast"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/logger"
	"gotrader/internal/market"
	"gotrader/internal/metrics"
	"gotrader/internal/notifier"
	"gotrader/internal/store/journal"
	"gotrader/internal/trading"
)

const (
	pageSize = 1000
	maxPages = 50
)

// CandleStore is the local daily history the runner refreshes and reads.
type CandleStore interface {
	InsertCandles(ctx context.Context, symbol string, candles []market.Candle) (int, error)
	Load(ctx context.Context, symbol string, limit int) ([]market.Candle, error)
	Newest(ctx context.Context, symbol string) (market.Candle, bool, error)
}

type Journal interface {
	Insert(ctx context.Context, rec *journal.DecisionRecord) error
}

// RunnerDeps are the collaborators of a daily run. Journal, Metrics and
// Notifier are optional.
type RunnerDeps struct {
	Source       market.Source
	Candles      CandleStore
	Ledgers      ledger.Store
	Forecaster   forecast.Provider
	Journal      Journal
	Metrics      *metrics.Registry
	Notifier     notifier.TextNotifier
	NewAuditSink func(coins.Coin) trading.AuditSink
}

type RunnerSettings struct {
	Indicators   indicator.Settings
	Params       trading.Params
	HistoryDays  int
	TextfilePath string
}

// Outcome is the result of one successful run.
type Outcome struct {
	RunID    string
	Coin     coins.Coin
	Date     time.Time
	Close    float64
	Row      indicator.Row
	Forecast forecast.Forecast
	Previous ledger.State
	State    ledger.State
}

// Runner executes the daily pipeline for one coin at a time.
type Runner struct {
	deps     RunnerDeps
	settings RunnerSettings
	now      func() time.Time

	mu     sync.RWMutex
	params trading.Params
}

type RunnerOption func(*Runner)

func WithNow(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(deps RunnerDeps, settings RunnerSettings, opts ...RunnerOption) (*Runner, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("runner requires a candle source")
	case deps.Candles == nil:
		return nil, errors.New("runner requires a candle store")
	case deps.Ledgers == nil:
		return nil, errors.New("runner requires a ledger store")
	case deps.Forecaster == nil:
		return nil, errors.New("runner requires a forecaster")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.Nop{}
	}
	if settings.HistoryDays <= 0 {
		settings.HistoryDays = 1000
	}
	r := &Runner{deps: deps, settings: settings, now: time.Now, params: settings.Params}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// SetParams swaps the strategy parameters used by later runs.
func (r *Runner) SetParams(p trading.Params) {
	r.mu.Lock()
	r.params = p
	r.mu.Unlock()
}

func (r *Runner) Params() trading.Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params
}

// Run refreshes candles, forecasts, advances the ledger of coin by one day
// and persists it. Ledger load/save failures are fatal; journal, metrics and
// notification failures are logged only.
func (r *Runner) Run(ctx context.Context, coin coins.Coin) (Outcome, error) {
	start := r.now()
	runID := uuid.NewString()
	log := logger.With("run_id", runID, "coin", coin.String())
	log.Info("run started")

	out, stage, err := r.run(ctx, coin, runID)
	if err != nil {
		if r.deps.Metrics != nil {
			r.deps.Metrics.RunError(coin.String(), stage)
		}
		log.Error("run failed", "stage", stage, "error", err)
		return Outcome{}, fmt.Errorf("%s: %s: %w", coin, stage, err)
	}

	r.record(ctx, out, r.now().Sub(start))
	log.Info("run finished", "mode", out.State.Position.Mode, "action", out.State.Action.ActionToTake)
	return out, nil
}

func (r *Runner) run(ctx context.Context, coin coins.Coin, runID string) (Outcome, string, error) {
	if _, err := coins.Parse(coin.String()); err != nil {
		return Outcome{}, "validate", err
	}
	companion := coin.Companion()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := r.refresh(gctx, coin.Symbol())
		return err
	})
	g.Go(func() error {
		if _, err := r.refresh(gctx, companion.Symbol()); err != nil {
			logger.Warnf("%s: companion %s refresh failed: %v", coin, companion, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Outcome{}, "refresh", err
	}

	primary, err := r.table(ctx, coin.Symbol())
	if err != nil {
		return Outcome{}, "indicators", err
	}
	var companions []indicator.Table
	if t, err := r.table(ctx, companion.Symbol()); err != nil {
		logger.Warnf("%s: companion %s indicators unavailable: %v", coin, companion, err)
	} else {
		companions = append(companions, t)
	}

	fc, err := r.deps.Forecaster.Predict(ctx, primary, companions)
	if err != nil {
		return Outcome{}, "forecast", err
	}
	logger.Infof("%s: %d-day forecast %.2f (last close %.2f)", coin, fc.Horizon, fc.Price, fc.LastClose)

	prev, err := r.deps.Ledgers.Load(coin)
	if err != nil {
		return Outcome{}, "ledger_load", err
	}

	opts := []trading.Option{trading.WithClock(r.now)}
	if r.deps.NewAuditSink != nil {
		opts = append(opts, trading.WithAuditSink(r.deps.NewAuditSink(coin)))
	}
	machine, err := trading.New(coin.String(), fc.Price, primary.Rows, prev, r.Params(), opts...)
	if err != nil {
		return Outcome{}, "machine", err
	}
	if err := machine.CalculatePositions(); err != nil {
		return Outcome{}, "calculate", err
	}
	next, err := machine.UpdateState()
	if err != nil {
		return Outcome{}, "update_state", err
	}
	if err := r.deps.Ledgers.Save(coin, next); err != nil {
		return Outcome{}, "ledger_save", err
	}

	last := primary.Rows[primary.Len()-1]
	return Outcome{
		RunID:    runID,
		Coin:     coin,
		Date:     last.Date,
		Close:    last.Close,
		Row:      last,
		Forecast: fc,
		Previous: prev,
		State:    next,
	}, "", nil
}

// refresh pulls candles newer than the stored newest; an empty store is
// backfilled HistoryDays back.
func (r *Runner) refresh(ctx context.Context, symbol string) (int, error) {
	newest, ok, err := r.deps.Candles.Newest(ctx, symbol)
	if err != nil {
		return 0, err
	}
	since := market.Day(r.now()).AddDate(0, 0, -r.settings.HistoryDays).UnixMilli()
	if ok {
		since = newest.OpenTime + 1
	}
	total := 0
	for page := 0; page < maxPages; page++ {
		batch, err := r.deps.Source.FetchDaily(ctx, symbol, since, pageSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		n, err := r.deps.Candles.InsertCandles(ctx, symbol, batch)
		if err != nil {
			return total, err
		}
		total += n
		// the source drops the open candle, so a full page may come back one short
		if len(batch) < pageSize-1 {
			break
		}
		since = batch[len(batch)-1].OpenTime + 1
	}
	logger.Debugf("%s: stored %d new candles from %s", symbol, total, r.deps.Source.Name())
	return total, nil
}

func (r *Runner) table(ctx context.Context, symbol string) (indicator.Table, error) {
	candles, err := r.deps.Candles.Load(ctx, symbol, r.settings.HistoryDays)
	if err != nil {
		return indicator.Table{}, err
	}
	return indicator.Build(symbol, candles, r.settings.Indicators)
}

// record runs the best-effort side effects of a finished run.
func (r *Runner) record(ctx context.Context, out Outcome, took time.Duration) {
	coin := out.Coin.String()
	if r.deps.Journal != nil {
		if err := r.deps.Journal.Insert(ctx, decisionRecord(out)); err != nil {
			logger.Warnf("%s: journal insert failed: %v", coin, err)
		}
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveRun(metrics.RunResult{
			Coin:     coin,
			Forecast: out.Forecast.Price,
			Close:    out.Close,
			State:    out.State,
			Duration: took,
		})
		if err := r.deps.Metrics.WriteTextfile(r.settings.TextfilePath); err != nil {
			logger.Warnf("%s: metrics textfile export failed: %v", coin, err)
		}
	}
	if err := r.deps.Notifier.SendText(ctx, summaryMessage(out).RenderMarkdown()); err != nil {
		logger.Warnf("%s: notification failed: %v", coin, err)
	}
}

func decisionRecord(out Outcome) *journal.DecisionRecord {
	rec := &journal.DecisionRecord{
		RunID:         out.RunID,
		Coin:          out.Coin.String(),
		RunDate:       out.Date.Format("2006-01-02"),
		Mode:          string(out.State.Position.Mode),
		Action:        string(out.State.Action.ActionToTake),
		Close:         out.Close,
		RollingMean:   out.Row.RollingMean,
		BollingerHigh: out.Row.BollingerHigh,
		BollingerLow:  out.Row.BollingerLow,
		Forecast:      out.Forecast.Price,
		StopLossPrice: out.State.Position.StopLossPrice.InexactFloat64(),
	}
	if raw, err := json.Marshal(out.State); err == nil {
		rec.LedgerJSON = raw
	}
	return rec
}
