package config

import (
	"fmt"
	"sort"
	"strings"

	"gotrader/internal/coins"
)

func validate(c *Config) error {
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Indicators.validate(); err != nil {
		return err
	}
	if err := c.Forecast.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if _, err := coins.ParseAll(c.Schedule.Coins); err != nil {
		return fmt.Errorf("schedule.coins: %w", err)
	}
	if c.Schedule.OffsetMinutes < 0 || c.Schedule.OffsetMinutes >= 24*60 {
		return fmt.Errorf("schedule.offset_minutes must be in [0,1440)")
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be in (0,1), got %v", s.StopLossPct)
	}
	return nil
}

func (i *IndicatorConfig) validate() error {
	if i.BollingerWindow < 2 {
		return fmt.Errorf("indicators.bollinger_window must be >= 2")
	}
	if i.NoOfStd <= 0 {
		return fmt.Errorf("indicators.no_of_std must be > 0")
	}
	if i.MACDFast <= 0 || i.MACDSlow <= i.MACDFast || i.MACDSignal <= 0 {
		return fmt.Errorf("indicators.macd requires 0 < fast < slow and signal > 0")
	}
	if i.STCFast <= 0 || i.STCSlow <= i.STCFast || i.STCCycle < 2 {
		return fmt.Errorf("indicators.stc requires 0 < fast < slow and cycle >= 2")
	}
	for name, v := range map[string]int{
		"rsi_period":   i.RSIPeriod,
		"stoch_k":      i.StochK,
		"stoch_slow_k": i.StochSlowK,
		"stoch_d":      i.StochD,
	} {
		if v <= 0 {
			return fmt.Errorf("indicators.%s must be > 0", name)
		}
	}
	return nil
}

func (f *ForecastConfig) validate() error {
	if f.HorizonDays <= 0 {
		return fmt.Errorf("forecast.horizon_days must be > 0")
	}
	for _, w := range f.LookbackWindows {
		if w < 2 {
			return fmt.Errorf("forecast.lookback_windows entries must be >= 2, got %d", w)
		}
	}
	sort.Ints(f.LookbackWindows)
	if f.RidgeLambda < 0 {
		return fmt.Errorf("forecast.ridge_lambda must be >= 0")
	}
	if f.KNNNeighbors <= 0 {
		return fmt.Errorf("forecast.knn_neighbors must be > 0")
	}
	if f.MetaHoldout < 0 || f.MinTrainSamples <= 0 {
		return fmt.Errorf("forecast.meta_holdout must be >= 0 and min_train_samples > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if m.HistoryDays <= 0 {
		return fmt.Errorf("market.history_days must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(m.Interval)) {
	case "1d", "24h":
	default:
		return fmt.Errorf("market.interval must be 1d, got %q", m.Interval)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled && (n.Telegram.BotToken == "" || n.Telegram.ChatID == "") {
		return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
	}
	return nil
}
