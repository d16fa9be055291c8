package timeutil

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// MaxDuration returns the largest value in durations, or zero when empty.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	highest := durations[0]
	for _, d := range durations[1:] {
		if d > highest {
			highest = d
		}
	}
	return highest
}

// ComputeJitter returns a pseudo-random duration in [0, max).
// A non-positive max yields zero.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes initial * multiplier^(backoffCount-1),
// capped at the configured maximum, plus jitter. Counts below one are
// treated as the first backoff.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	exponent := float64(backoffCount - 1)
	delay := float64(backoffParam.InitialDuration()) * math.Pow(backoffParam.Multiplier(), exponent)
	if maxDelay := float64(backoffParam.MaxDuration()); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	return time.Duration(delay) + ComputeJitter(jitter, rng)
}

// SleepContext waits for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was cut short.
func SleepContext(ctx context.Context, d time.Duration) error {
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
