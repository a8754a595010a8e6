// Package redislock provides an advisory distributed mutex on Redis keys,
// with bounded waiting, TTL auto-release and fenced unlock. Multi-key
// acquisition always takes keys in sorted order so overlapping holders
// cannot deadlock each other.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the wait budget expires before the lock
// becomes free.
var ErrNotAcquired = errors.New("redislock: lock not acquired within wait budget")

// releaseScript deletes the key only if it still holds our owner token, so a
// holder whose TTL lapsed cannot steal the lock back from its successor.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// DefaultRetryDelay is the pause between acquisition attempts.
const DefaultRetryDelay = 50 * time.Millisecond

// Locker acquires and releases keyed mutexes on a shared Redis instance.
type Locker struct {
	client     *redis.Client
	keyPrefix  string
	retryDelay time.Duration
}

// Handle represents a held lock (or lock set). The token fences releases:
// only the acquirer that received the handle can release its keys.
type Handle struct {
	keys  []string
	token string
}

// Token returns the fencing token stored under the held keys.
func (h *Handle) Token() string {
	return h.token
}

// Keys returns the held Redis keys in acquisition order.
func (h *Handle) Keys() []string {
	return h.keys
}

// NewLocker creates a Locker. keyPrefix is prepended to every lock name.
func NewLocker(client *redis.Client, keyPrefix string) *Locker {
	return &Locker{
		client:     client,
		keyPrefix:  keyPrefix,
		retryDelay: DefaultRetryDelay,
	}
}

func (l *Locker) key(name string) string {
	return l.keyPrefix + name
}

// Acquire takes a single lock, retrying every retryDelay until waitBudget is
// exhausted. The lock auto-releases after ttl; callers must keep critical
// sections shorter than ttl and treat release-after-expiry as best-effort.
func (l *Locker) Acquire(ctx context.Context, name string, ttl, waitBudget time.Duration) (*Handle, error) {
	token := uuid.NewString()
	if err := l.acquireKey(ctx, l.key(name), token, ttl, waitBudget); err != nil {
		return nil, err
	}
	return &Handle{keys: []string{l.key(name)}, token: token}, nil
}

// AcquireMany takes all named locks or none. Names are sorted before
// acquisition; the global order is the only thing preventing an A-then-B /
// B-then-A cycle between competing multi-key holders. Each key gets the full
// waitBudget. On failure at position k, keys 0..k-1 are released.
func (l *Locker) AcquireMany(ctx context.Context, names []string, ttl, waitBudget time.Duration) (*Handle, error) {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	// Drop duplicates so a route visiting the same flight twice does not
	// self-deadlock.
	deduped := sorted[:0]
	for i, name := range sorted {
		if i == 0 || name != sorted[i-1] {
			deduped = append(deduped, name)
		}
	}

	token := uuid.NewString()
	handle := &Handle{token: token}

	for _, name := range deduped {
		if err := l.acquireKey(ctx, l.key(name), token, ttl, waitBudget); err != nil {
			l.releaseKeys(ctx, handle.keys, token)
			return nil, err
		}
		handle.keys = append(handle.keys, l.key(name))
	}
	return handle, nil
}

// Release frees all keys of the handle. Keys whose TTL already lapsed (and
// may belong to a new owner) are left untouched by the fencing script.
func (l *Locker) Release(ctx context.Context, handle *Handle) error {
	if handle == nil {
		return nil
	}
	return l.releaseKeys(ctx, handle.keys, handle.token)
}

func (l *Locker) acquireKey(ctx context.Context, key, token string, ttl, waitBudget time.Duration) error {
	deadline := time.Now().Add(waitBudget)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("redislock: setnx %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().Add(l.retryDelay).After(deadline) {
			return ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Locker) releaseKeys(ctx context.Context, keys []string, token string) error {
	var firstErr error
	for _, key := range keys {
		if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("redislock: release %s: %w", key, err)
		}
	}
	return firstErr
}
