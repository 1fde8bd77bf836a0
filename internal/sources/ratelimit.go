package sources

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// rateLimiter enforces a fixed one-minute request budget for a single
// source. When the budget is spent, Wait blocks until the window resets
// instead of failing the call. Each source owns its own limiter; the
// counters are never shared across sources.
type rateLimiter struct {
	mu          sync.Mutex
	perMinute   int
	windowStart time.Time
	count       int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		perMinute: perMinute,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Wait reserves one request slot, blocking through window resets as needed.
// It returns early only when the context is cancelled.
func (l *rateLimiter) Wait(ctx context.Context) error {
	if l == nil || l.perMinute <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.now()
		if now.Sub(l.windowStart) >= time.Minute {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.perMinute {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := time.Minute - now.Sub(l.windowStart)
		l.mu.Unlock()

		logrus.Debugf("Rate limit reached (%d/min), waiting %v for window reset", l.perMinute, wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
