package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"gotrader/internal/audit"
	"gotrader/internal/coins"
	"gotrader/internal/config"
	"gotrader/internal/forecast"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/logger"
	"gotrader/internal/market"
	"gotrader/internal/metrics"
	"gotrader/internal/notifier"
	"gotrader/internal/store/candles"
	"gotrader/internal/store/journal"
	apihttp "gotrader/internal/transport/http"
	"gotrader/internal/trading"
)

// App holds the wired dependencies of one process.
type App struct {
	Config     *config.Config
	Runner     *Runner
	Ledgers    *ledger.FileStore
	Candles    *candles.Store
	Journal    *journal.Store
	Metrics    *metrics.Registry
	Forecaster forecast.Provider
}

type Builder struct {
	cfg *config.Config

	sourceFn   func(config.MarketConfig) market.Source
	notifierFn func(config.TelegramConfig) notifier.TextNotifier
	now        func() time.Time
}

type BuilderOption func(*Builder)

// WithSource replaces the Binance candle source.
func WithSource(src market.Source) BuilderOption {
	return func(b *Builder) {
		b.sourceFn = func(config.MarketConfig) market.Source { return src }
	}
}

func WithNotifier(n notifier.TextNotifier) BuilderOption {
	return func(b *Builder) {
		b.notifierFn = func(config.TelegramConfig) notifier.TextNotifier { return n }
	}
}

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(cfg *config.Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:        cfg,
		sourceFn:   buildSource,
		notifierFn: buildNotifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildSource(mc config.MarketConfig) market.Source {
	return market.NewBinanceSource(market.BinanceConfig{
		RESTBaseURL: mc.RESTBaseURL,
		APIKey:      mc.APIKey,
		APISecret:   mc.APISecret,
		HTTPTimeout: time.Duration(mc.HTTPTimeoutSeconds) * time.Second,
	})
}

func buildNotifier(tc config.TelegramConfig) notifier.TextNotifier {
	if !tc.Enabled {
		return notifier.Nop{}
	}
	return notifier.NewTelegram(tc.BotToken, tc.ChatID)
}

// Build opens the stores and wires the runner. The journal is optional: when
// it cannot be opened the runner continues without it.
func (b *Builder) Build() (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	candleStore, err := candles.Open(cfg.ResolvePath(cfg.Storage.CandleDB))
	if err != nil {
		return nil, fmt.Errorf("open candle store: %w", err)
	}
	a := &App{
		Config:     cfg,
		Candles:    candleStore,
		Ledgers:    ledger.NewFileStore(cfg.ResolvePath(cfg.Storage.LedgerDir)),
		Metrics:    metrics.New(),
		Forecaster: forecast.NewEnsemble(ForecastConfig(cfg)),
	}
	if js, err := journal.Open(cfg.ResolvePath(cfg.Storage.JournalDB)); err != nil {
		logger.Warnf("decision journal disabled: %v", err)
	} else {
		a.Journal = js
	}

	deps := RunnerDeps{
		Source:       b.sourceFn(cfg.Market),
		Candles:      candleStore,
		Ledgers:      a.Ledgers,
		Forecaster:   a.Forecaster,
		Metrics:      a.Metrics,
		Notifier:     b.notifierFn(cfg.Notify.Telegram),
		NewAuditSink: auditSinkFactory(cfg),
	}
	if a.Journal != nil {
		deps.Journal = a.Journal
	}
	runner, err := NewRunner(deps, RunnerSettings{
		Indicators:   IndicatorSettings(cfg),
		Params:       StrategyParams(cfg),
		HistoryDays:  cfg.Market.HistoryDays,
		TextfilePath: cfg.ResolvePath(cfg.Metrics.TextfilePath),
	}, WithNow(b.now))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Runner = runner
	return a, nil
}

// HTTPServer builds the status API over the app's stores.
func (a *App) HTTPServer() (*apihttp.Server, error) {
	cfg := apihttp.ServerConfig{
		Addr:    a.Config.HTTP.Addr,
		Ledgers: a.Ledgers,
		Metrics: a.Metrics.Handler(),
	}
	if a.Journal != nil {
		cfg.Decisions = a.Journal
	}
	if list, err := coins.ParseAll(a.Config.Schedule.Coins); err == nil {
		cfg.Coins = list
	}
	return apihttp.NewServer(cfg)
}

func (a *App) Close() error {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.Candles != nil {
		errs = append(errs, a.Candles.Close())
	}
	return errors.Join(errs...)
}

// auditSinkFactory gives every run a fresh per-coin file sink, so each file
// holds the trail of that coin's latest run.
func auditSinkFactory(cfg *config.Config) func(coins.Coin) trading.AuditSink {
	path := cfg.ResolvePath(cfg.Storage.AuditLog)
	return func(coin coins.Coin) trading.AuditSink {
		dir, base := filepath.Split(path)
		return audit.NewFileSink(filepath.Join(dir, coin.String()+"_"+base), cfg.Storage.AuditSeparator)
	}
}

func IndicatorSettings(cfg *config.Config) indicator.Settings {
	ic := cfg.Indicators
	return indicator.Settings{
		BollingerWindow: ic.BollingerWindow,
		NoOfStd:         ic.NoOfStd,
		MACDFast:        ic.MACDFast,
		MACDSlow:        ic.MACDSlow,
		MACDSignal:      ic.MACDSignal,
		RSIPeriod:       ic.RSIPeriod,
		StochK:          ic.StochK,
		StochSlowK:      ic.StochSlowK,
		StochD:          ic.StochD,
		STCFast:         ic.STCFast,
		STCSlow:         ic.STCSlow,
		STCCycle:        ic.STCCycle,
	}
}

func ForecastConfig(cfg *config.Config) forecast.Config {
	fc := cfg.Forecast
	return forecast.Config{
		HorizonDays:     fc.HorizonDays,
		LookbackWindows: fc.LookbackWindows,
		RidgeLambda:     fc.RidgeLambda,
		KNNNeighbors:    fc.KNNNeighbors,
		MetaHoldout:     fc.MetaHoldout,
		MinTrainSamples: fc.MinTrainSamples,
	}
}

func StrategyParams(cfg *config.Config) trading.Params {
	return trading.Params{
		StopLossPct:   decimal.NewFromFloat(cfg.Strategy.StopLossPct),
		ShortsEnabled: cfg.Strategy.ShortsEnabled,
		HorizonDays:   cfg.Forecast.HorizonDays,
	}
}
