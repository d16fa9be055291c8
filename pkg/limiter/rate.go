package limiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
)

/*
RateLimiter keeps story imports polite towards the origins they pull from.

Responsibilities:
  - Bookkeep each host's last fetch timestamp
  - Grow a per-host backoff after throttling responses and clear it on success
  - Resolve how long the next request to a host has to wait

A single story usually references a handful of CDNs, so contention is on a
few keys and a plain RWMutex over a map is enough.
*/
type RateLimiter interface {
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
	Wait(ctx context.Context, host string) error
}

type ConcurrentRateLimiter struct {
	mu           sync.RWMutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentRateLimiter() *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		hostTimings:  make(map[string]hostTiming),
		backoffParam: timeutil.NewBackoffParam(time.Second, 2.0, 30*time.Second),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ConcurrentRateLimiter) SetBaseDelay(baseDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseDelay = baseDelay
}

func (r *ConcurrentRateLimiter) SetJitter(jitter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jitter = jitter
}

func (r *ConcurrentRateLimiter) SetBackoffParam(param timeutil.BackoffParam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backoffParam = param
}

func (r *ConcurrentRateLimiter) SetRandomSeed(randomSeed int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	r.rng = rand.New(rand.NewSource(randomSeed))
}

// Backoff bumps the host's backoff counter and recomputes its delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.backoffCount++
	timing.backoffDelay = r.backoffDelay(timing.backoffCount)
	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful response.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing, exists := r.hostTimings[host]
	if !exists {
		return
	}
	timing.backoffCount = 0
	timing.backoffDelay = 0
	r.hostTimings[host] = timing
}

func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.lastFetchAt = time.Now()
	r.hostTimings[host] = timing
}

// ResolveDelay returns the time left before host may be fetched again:
// max(baseDelay, backoffDelay) + jitter, minus the time since the last fetch.
// Hosts never fetched before are not delayed.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	timing, exists := r.hostTimings[host]
	base := r.baseDelay
	jitter := r.jitter
	r.mu.RUnlock()

	if !exists || timing.lastFetchAt.IsZero() {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, timing.backoffDelay})
	finalDelay += r.computeJitter(jitter)

	elapsed := time.Since(timing.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

// Wait blocks until host may be fetched, then records the fetch.
func (r *ConcurrentRateLimiter) Wait(ctx context.Context, host string) error {
	if err := timeutil.SleepContext(ctx, r.ResolveDelay(host)); err != nil {
		return err
	}
	r.MarkLastFetchAsNow(host)
	return nil
}

func (r *ConcurrentRateLimiter) HostTiming(host string) (hostTiming, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timing, ok := r.hostTimings[host]
	return timing, ok
}

// caller must hold r.mu
func (r *ConcurrentRateLimiter) backoffDelay(backoffCount int) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return timeutil.ExponentialBackoffDelay(backoffCount, r.jitter, *r.rng, r.backoffParam)
}

func (r *ConcurrentRateLimiter) computeJitter(max time.Duration) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return timeutil.ComputeJitter(max, *r.rng)
}
