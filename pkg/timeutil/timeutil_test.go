package timeutil_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), timeutil.MaxDuration(nil))
	assert.Equal(t, 3*time.Second, timeutil.MaxDuration([]time.Duration{time.Second, 3 * time.Second, 2 * time.Second}))

	input := []time.Duration{2 * time.Second, time.Second}
	timeutil.MaxDuration(input)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, input)
}

func TestComputeJitter(t *testing.T) {
	rng := *rand.New(rand.NewSource(7))
	assert.Zero(t, timeutil.ComputeJitter(0, rng))
	assert.Zero(t, timeutil.ComputeJitter(-time.Second, rng))

	for i := 0; i < 200; i++ {
		j := timeutil.ComputeJitter(50*time.Millisecond, rng)
		require.GreaterOrEqual(t, j, time.Duration(0))
		require.Less(t, j, 50*time.Millisecond)
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := timeutil.NewBackoffParam(200*time.Millisecond, 2.0, time.Second)
	rng := *rand.New(rand.NewSource(1))

	tests := []struct {
		count int
		want  time.Duration
	}{
		{count: -1, want: 200 * time.Millisecond},
		{count: 0, want: 200 * time.Millisecond},
		{count: 1, want: 200 * time.Millisecond},
		{count: 2, want: 400 * time.Millisecond},
		{count: 3, want: 800 * time.Millisecond},
		{count: 4, want: time.Second},
		{count: 30, want: time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeutil.ExponentialBackoffDelay(tt.count, 0, rng, param), "count %d", tt.count)
	}
}

func TestExponentialBackoffDelay_Uncapped(t *testing.T) {
	param := timeutil.NewBackoffParam(time.Millisecond, 10, 0)
	rng := *rand.New(rand.NewSource(1))
	assert.Equal(t, time.Second, timeutil.ExponentialBackoffDelay(4, 0, rng, param))
}

func TestExponentialBackoffDelay_AddsJitter(t *testing.T) {
	param := timeutil.NewBackoffParam(100*time.Millisecond, 2, time.Second)
	rng := *rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		d := timeutil.ExponentialBackoffDelay(2, 20*time.Millisecond, rng, param)
		require.GreaterOrEqual(t, d, 200*time.Millisecond)
		require.Less(t, d, 220*time.Millisecond)
	}
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, timeutil.SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := timeutil.SleepContext(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, timeutil.SleepContext(ctx, 0), context.Canceled)
}
