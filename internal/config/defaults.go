package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultMarketREST        = "https://api.binance.com"
	defaultMarketTimeout     = 15
	defaultMarketHistoryDays = 1000
	defaultMarketInterval    = "1d"
	defaultLedgerDir         = "configs/ledgers"
	defaultCandleDB          = "data/candles.db"
	defaultJournalDB         = "data/journal.db"
	defaultAuditLog          = "data/trading_state.log"
	defaultAuditSeparator    = "\n"
	defaultStopLossPct       = 0.1
	defaultBollingerWindow   = 20
	defaultNoOfStd           = 2
	defaultMACDFast          = 12
	defaultMACDSlow          = 26
	defaultMACDSignal        = 9
	defaultRSIPeriod         = 14
	defaultStochK            = 14
	defaultStochSlowK        = 3
	defaultStochD            = 3
	defaultSTCFast           = 23
	defaultSTCSlow           = 50
	defaultSTCCycle          = 10
	defaultHorizonDays       = 7
	defaultRidgeLambda       = 1.0
	defaultKNNNeighbors      = 5
	defaultMetaHoldout       = 30
	defaultMinTrainSamples   = 60
	defaultHTTPAddr          = ":9981"
	defaultScheduleOffset    = 5
)

var defaultLookbackWindows = []int{7, 14, 28}

func (c *Config) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &c.App.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &c.App.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &c.App.LogFormat, defaultAppLogFormat),

		stringFieldDefault("market.rest_base_url", &c.Market.RESTBaseURL, defaultMarketREST),
		intFieldDefault("market.http_timeout_seconds", &c.Market.HTTPTimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.history_days", &c.Market.HistoryDays, defaultMarketHistoryDays),
		stringFieldDefault("market.interval", &c.Market.Interval, defaultMarketInterval),

		stringFieldDefault("storage.ledger_dir", &c.Storage.LedgerDir, defaultLedgerDir),
		stringFieldDefault("storage.candle_db", &c.Storage.CandleDB, defaultCandleDB),
		stringFieldDefault("storage.journal_db", &c.Storage.JournalDB, defaultJournalDB),
		stringFieldDefault("storage.audit_log", &c.Storage.AuditLog, defaultAuditLog),
		fieldDefault{
			key:   "storage.audit_separator",
			need:  func() bool { return c.Storage.AuditSeparator == "" },
			apply: func() { c.Storage.AuditSeparator = defaultAuditSeparator },
		},

		floatFieldDefault("strategy.stop_loss_pct", &c.Strategy.StopLossPct, defaultStopLossPct),

		intFieldDefault("indicators.bollinger_window", &c.Indicators.BollingerWindow, defaultBollingerWindow),
		floatFieldDefault("indicators.no_of_std", &c.Indicators.NoOfStd, defaultNoOfStd),
		intFieldDefault("indicators.macd_fast", &c.Indicators.MACDFast, defaultMACDFast),
		intFieldDefault("indicators.macd_slow", &c.Indicators.MACDSlow, defaultMACDSlow),
		intFieldDefault("indicators.macd_signal", &c.Indicators.MACDSignal, defaultMACDSignal),
		intFieldDefault("indicators.rsi_period", &c.Indicators.RSIPeriod, defaultRSIPeriod),
		intFieldDefault("indicators.stoch_k", &c.Indicators.StochK, defaultStochK),
		intFieldDefault("indicators.stoch_slow_k", &c.Indicators.StochSlowK, defaultStochSlowK),
		intFieldDefault("indicators.stoch_d", &c.Indicators.StochD, defaultStochD),
		intFieldDefault("indicators.stc_fast", &c.Indicators.STCFast, defaultSTCFast),
		intFieldDefault("indicators.stc_slow", &c.Indicators.STCSlow, defaultSTCSlow),
		intFieldDefault("indicators.stc_cycle", &c.Indicators.STCCycle, defaultSTCCycle),

		intFieldDefault("forecast.horizon_days", &c.Forecast.HorizonDays, defaultHorizonDays),
		floatFieldDefault("forecast.ridge_lambda", &c.Forecast.RidgeLambda, defaultRidgeLambda),
		intFieldDefault("forecast.knn_neighbors", &c.Forecast.KNNNeighbors, defaultKNNNeighbors),
		intFieldDefault("forecast.meta_holdout", &c.Forecast.MetaHoldout, defaultMetaHoldout),
		intFieldDefault("forecast.min_train_samples", &c.Forecast.MinTrainSamples, defaultMinTrainSamples),
		fieldDefault{
			key:   "forecast.lookback_windows",
			need:  func() bool { return len(c.Forecast.LookbackWindows) == 0 },
			apply: func() { c.Forecast.LookbackWindows = append([]int(nil), defaultLookbackWindows...) },
		},

		stringFieldDefault("http.addr", &c.HTTP.Addr, defaultHTTPAddr),
		intFieldDefault("schedule.offset_minutes", &c.Schedule.OffsetMinutes, defaultScheduleOffset),
		fieldDefault{
			key:   "schedule.coins",
			need:  func() bool { return len(c.Schedule.Coins) == 0 },
			apply: func() { c.Schedule.Coins = []string{"btc", "eth"} },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == 0 },
		apply: func() { *target = def },
	}
}
