package client

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy is a bounded exponential backoff applied to throttled requests.
// MaxAttempts counts the first attempt.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Delay returns the pause before retry number retry (0-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(retry)))
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay < 0) {
		return p.MaxDelay
	}
	return delay
}

// Do calls fn until it returns anything but ErrThrottled or the attempts run out.
// onThrottle, when set, is told about every backoff before it starts.
func (p RetryPolicy) Do(
	ctx context.Context,
	sleep SleepFunc,
	onThrottle func(attempt int, delay time.Duration),
	fn func(ctx context.Context) error,
) error {
	if sleep == nil {
		sleep = Sleep
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrThrottled) {
			return err
		}
		if attempt >= attempts {
			return errors.Wrapf(ErrRetriesExhausted, "throttled on all %d attempts", attempt)
		}

		delay := p.Delay(attempt - 1)
		if onThrottle != nil {
			onThrottle(attempt, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return errors.Wrap(err, "throttle backoff")
		}
	}
}
