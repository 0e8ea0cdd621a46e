package config

import "strings"

// Config is the top-level configuration of gotrader.
type Config struct {
	App        AppConfig       `toml:"app"`
	Market     MarketConfig    `toml:"market"`
	Storage    StorageConfig   `toml:"storage"`
	Strategy   StrategyConfig  `toml:"strategy"`
	Indicators IndicatorConfig `toml:"indicators"`
	Forecast   ForecastConfig  `toml:"forecast"`
	Notify     NotifyConfig    `toml:"notify"`
	HTTP       HTTPConfig      `toml:"http"`
	Metrics    MetricsConfig   `toml:"metrics"`
	Schedule   ScheduleConfig  `toml:"schedule"`

	// managed is true when running inside a managed function environment.
	managed bool
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
}

// MarketConfig points at the daily candle source.
type MarketConfig struct {
	RESTBaseURL        string `toml:"rest_base_url"`
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	HistoryDays        int    `toml:"history_days"`
	Interval           string `toml:"interval"`
}

type StorageConfig struct {
	LedgerDir      string `toml:"ledger_dir"`
	CandleDB       string `toml:"candle_db"`
	JournalDB      string `toml:"journal_db"`
	AuditLog       string `toml:"audit_log"`
	AuditSeparator string `toml:"audit_separator"`
}

// StrategyConfig holds the trading state machine parameters.
type StrategyConfig struct {
	StopLossPct   float64 `toml:"stop_loss_pct"`
	ShortsEnabled bool    `toml:"shorts_enabled"`
}

type IndicatorConfig struct {
	BollingerWindow int     `toml:"bollinger_window"`
	NoOfStd         float64 `toml:"no_of_std"`
	MACDFast        int     `toml:"macd_fast"`
	MACDSlow        int     `toml:"macd_slow"`
	MACDSignal      int     `toml:"macd_signal"`
	RSIPeriod       int     `toml:"rsi_period"`
	StochK          int     `toml:"stoch_k"`
	StochSlowK      int     `toml:"stoch_slow_k"`
	StochD          int     `toml:"stoch_d"`
	STCFast         int     `toml:"stc_fast"`
	STCSlow         int     `toml:"stc_slow"`
	STCCycle        int     `toml:"stc_cycle"`
}

type ForecastConfig struct {
	HorizonDays     int     `toml:"horizon_days"`
	LookbackWindows []int   `toml:"lookback_windows"`
	RidgeLambda     float64 `toml:"ridge_lambda"`
	KNNNeighbors    int     `toml:"knn_neighbors"`
	MetaHoldout     int     `toml:"meta_holdout"`
	MinTrainSamples int     `toml:"min_train_samples"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path"`
}

// ScheduleConfig drives the daemon's daily loop.
type ScheduleConfig struct {
	Coins         []string `toml:"coins"`
	OffsetMinutes int      `toml:"offset_minutes"`
}

// keySet tracks the field paths explicitly set in the config file or environment.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path != "" {
		k[path] = struct{}{}
	}
}

func (k keySet) isSet(path string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
