package scheduler

import (
	"context"
	"time"

	"gotrader/internal/logger"
)

// DailyScheduler fires a task once per UTC day, Offset after midnight, so that
// the previous daily candle is closed by the time the task runs.
type DailyScheduler struct {
	Offset         time.Duration
	RunImmediately bool

	interval time.Duration
	nowFn    func() time.Time
}

func NewDailyScheduler(offset time.Duration) *DailyScheduler {
	return &DailyScheduler{
		Offset:   offset,
		interval: 24 * time.Hour,
		nowFn:    time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *DailyScheduler) Start(ctx context.Context, task func(context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("DailyScheduler: task is nil, exit")
		return
	}
	if s.Offset < 0 {
		logger.Warnf("DailyScheduler: negative offset=%s, clamp to 0", s.Offset)
		s.Offset = 0
	}
	if s.interval <= 0 {
		s.interval = 24 * time.Hour
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("DailyScheduler: started offset=%s run_immediately=%v at=%s",
		s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task(ctx)
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.nextRun(now)
		logger.Infof("DailyScheduler: next run at=%s (in %s) | uptime=%s",
			wakeAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Infof("DailyScheduler: ctx done, exit")
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}
}

func (s *DailyScheduler) nextRun(now time.Time) (time.Time, time.Duration) {
	now = now.UTC()
	wakeAt := now.Truncate(s.interval).Add(s.Offset)
	if !wakeAt.After(now) {
		wakeAt = now.Truncate(s.interval).Add(s.interval).Add(s.Offset)
	}
	return wakeAt, wakeAt.Sub(now)
}
