package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter paces calls to a shared service at a fixed number per minute. A
// caller that has waited MaxWait proceeds anyway so that a saturated limiter
// slows the batch down instead of stalling it.
type Limiter struct {
	rl      *rate.Limiter
	maxWait time.Duration
}

// NewLimiter allows perMinute calls per minute with no burst. A perMinute of
// zero or less disables limiting.
func NewLimiter(perMinute int, maxWait time.Duration) *Limiter {
	l := &Limiter{maxWait: maxWait}
	if perMinute > 0 {
		l.rl = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return l
}

// Wait blocks until a call may proceed or MaxWait elapses. It only fails
// when ctx itself is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return ctx.Err()
	}

	waitCtx := ctx
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	if err := l.rl.Wait(waitCtx); err == nil {
		return nil
	}
	// Wait refuses up front when the next slot lies past the deadline, so
	// sit out the rest of the ceiling before going ahead.
	<-waitCtx.Done()
	if ctx.Err() != nil {
		return eris.Wrap(ctx.Err(), "resilience: rate limit wait")
	}

	zap.L().Warn("rate limit wait exceeded, proceeding",
		zap.Duration("max_wait", l.maxWait),
	)
	return nil
}
