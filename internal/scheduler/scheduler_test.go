package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailySchedulerNextRun(t *testing.T) {
	s := NewDailyScheduler(5 * time.Minute)

	t.Run("before offset fires same day", func(t *testing.T) {
		now := time.Date(2024, 3, 10, 0, 2, 0, 0, time.UTC)
		at, wait := s.nextRun(now)
		assert.Equal(t, time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC), at)
		assert.Equal(t, 3*time.Minute, wait)
	})

	t.Run("after offset waits for next day", func(t *testing.T) {
		now := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
		at, _ := s.nextRun(now)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC), at)
	})

	t.Run("non utc input is normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+8", 8*3600)
		now := time.Date(2024, 3, 10, 8, 1, 0, 0, loc) // 00:01 UTC
		at, _ := s.nextRun(now)
		assert.Equal(t, time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC), at)
	})
}

func TestDailySchedulerStopsOnCancel(t *testing.T) {
	s := NewDailyScheduler(time.Hour)
	s.RunImmediately = true
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	done := make(chan struct{})
	go func() {
		s.Start(ctx, func(context.Context) {
			atomic.AddInt32(&calls, 1)
			cancel()
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
