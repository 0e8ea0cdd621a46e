package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gotrader/internal/coins"
	"gotrader/internal/config"
	"gotrader/internal/logger"
	"gotrader/internal/scheduler"
)

// Daemon serves the status API and runs every scheduled coin once a day.
type Daemon struct {
	app        *App
	configPath string
	coins      []coins.Coin
	scheduler  *scheduler.DailyScheduler
}

func NewDaemon(a *App, configPath string) (*Daemon, error) {
	if a == nil || a.Runner == nil {
		return nil, fmt.Errorf("daemon requires a built app")
	}
	list, err := coins.ParseAll(a.Config.Schedule.Coins)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		app:        a,
		configPath: configPath,
		coins:      list,
		scheduler:  scheduler.NewDailyScheduler(time.Duration(a.Config.Schedule.OffsetMinutes) * time.Minute),
	}, nil
}

// Run blocks until ctx is cancelled or the HTTP server fails.
func (d *Daemon) Run(ctx context.Context) error {
	server, err := d.app.HTTPServer()
	if err != nil {
		return err
	}
	if d.configPath != "" {
		if err := config.Watch(d.configPath, d.reload); err != nil {
			logger.Warnf("config hot reload disabled: %v", err)
		}
	}
	logger.Infof("daemon: serving on %s, coins %v", server.Addr(), d.coins)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		d.scheduler.Start(ctx, d.RunAll)
		return nil
	})
	return group.Wait()
}

// RunAll runs the coins one after another; a failed coin does not stop the rest.
func (d *Daemon) RunAll(ctx context.Context) {
	for _, coin := range d.coins {
		if ctx.Err() != nil {
			return
		}
		if _, err := d.app.Runner.Run(ctx, coin); err != nil {
			logger.Errorf("daemon: %v", err)
		}
	}
}

// reload applies strategy changes; other sections need a restart.
func (d *Daemon) reload(cfg *config.Config) {
	p := StrategyParams(cfg)
	d.app.Runner.SetParams(p)
	logger.Infof("strategy reloaded: stop_loss_pct=%s shorts_enabled=%t", p.StopLossPct, p.ShortsEnabled)
}

// RunImmediately makes the daemon run every coin once at startup.
func (d *Daemon) RunImmediately(on bool) {
	d.scheduler.RunImmediately = on
}
