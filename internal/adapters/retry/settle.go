package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// SettleConfig bounds the retries of a call whose outcome may be a transient
// fault of the execution environment rather than a real result.
type SettleConfig struct {
	MaxRetries int
	// MaxJitter bounds the random pause before each retry.
	MaxJitter time.Duration
}

// TransientConfig matches the faults of remote executors: up to 20 retries,
// each after a random pause below one second.
func TransientConfig() SettleConfig {
	return SettleConfig{
		MaxRetries: 20,
		MaxJitter:  time.Second,
	}
}

// UntilSettled calls fn until it reports a settled outcome. fn returns
// transient=true when its outcome should not be trusted yet. After
// MaxRetries retries the last outcome is accepted as is. An error from fn or
// from ctx stops the loop immediately. retries is the number of repeated calls.
func UntilSettled(ctx context.Context, cfg SettleConfig, fn func(attempt int) (transient bool, err error)) (retries int, err error) {
	for attempt := 0; ; attempt++ {
		transient, err := fn(attempt)
		if err != nil {
			return attempt, err
		}
		if !transient || attempt >= cfg.MaxRetries {
			return attempt, nil
		}
		if err := wait(ctx, jitter(cfg.MaxJitter)); err != nil {
			return attempt, err
		}
	}
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
