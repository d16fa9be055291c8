package redisstore_test

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeClient is an in-memory stand-in for *redis.Client.
type fakeClient struct {
	mu      sync.Mutex
	values  map[string][]byte
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.values[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}
