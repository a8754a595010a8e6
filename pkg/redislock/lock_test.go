package redislock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocker(client, "lock:flight:"), srv
}

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	locker, srv := setupLocker(t)

	handle, err := locker.Acquire(ctx, "UL-300", 10*time.Second, time.Second)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, []string{"lock:flight:UL-300"}, handle.Keys())
	srv.CheckGet(t, "lock:flight:UL-300", handle.Token())

	require.NoError(t, locker.Release(ctx, handle))
	assert.False(t, srv.Exists("lock:flight:UL-300"))
}

func TestAcquireContended(t *testing.T) {
	ctx := context.Background()
	locker, _ := setupLocker(t)

	first, err := locker.Acquire(ctx, "UL-300", 10*time.Second, time.Second)
	require.NoError(t, err)

	// Second caller exhausts its wait budget.
	_, err = locker.Acquire(ctx, "UL-300", 10*time.Second, 120*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// After release the lock is free again.
	require.NoError(t, locker.Release(ctx, first))
	second, err := locker.Acquire(ctx, "UL-300", 10*time.Second, time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token(), second.Token())
}

func TestReleaseIsFenced(t *testing.T) {
	ctx := context.Background()
	locker, srv := setupLocker(t)

	first, err := locker.Acquire(ctx, "UL-300", 50*time.Millisecond, time.Second)
	require.NoError(t, err)

	// The first holder's TTL lapses and a new holder takes over.
	srv.FastForward(100 * time.Millisecond)
	second, err := locker.Acquire(ctx, "UL-300", 10*time.Second, time.Second)
	require.NoError(t, err)

	// The stale handle must not free the successor's lock.
	require.NoError(t, locker.Release(ctx, first))
	srv.CheckGet(t, "lock:flight:UL-300", second.Token())
}

func TestAcquireMany(t *testing.T) {
	ctx := context.Background()
	locker, srv := setupLocker(t)

	t.Run("Sorted And Deduped", func(t *testing.T) {
		handle, err := locker.AcquireMany(ctx, []string{"UL-302", "UL-300", "UL-302", "UL-301"}, 10*time.Second, time.Second)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"lock:flight:UL-300",
			"lock:flight:UL-301",
			"lock:flight:UL-302",
		}, handle.Keys())

		require.NoError(t, locker.Release(ctx, handle))
		for _, key := range handle.Keys() {
			assert.False(t, srv.Exists(key))
		}
	})

	t.Run("All Or Nothing", func(t *testing.T) {
		blocker, err := locker.Acquire(ctx, "UL-301", 10*time.Second, time.Second)
		require.NoError(t, err)

		_, err = locker.AcquireMany(ctx, []string{"UL-300", "UL-301"}, 10*time.Second, 120*time.Millisecond)
		assert.ErrorIs(t, err, ErrNotAcquired)

		// The first key taken before the failure was given back.
		assert.False(t, srv.Exists("lock:flight:UL-300"))

		require.NoError(t, locker.Release(ctx, blocker))
	})
}

func TestAcquireManyConcurrent(t *testing.T) {
	ctx := context.Background()
	locker, srv := setupLocker(t)

	// Two acquirers with overlapping key sets. Sorted acquisition order means
	// neither can hold a key the other needs while waiting forever, so both
	// must get through within their wait budget.
	budget := 2 * time.Second
	sets := [][]string{
		{"UL-300", "UL-301"},
		{"UL-301", "UL-302"},
	}

	start := time.Now()
	errs := make([]error, len(sets))
	var wg sync.WaitGroup
	for i, flightIDs := range sets {
		wg.Add(1)
		go func(i int, flightIDs []string) {
			defer wg.Done()
			handle, err := locker.AcquireMany(ctx, flightIDs, 10*time.Second, budget)
			if err != nil {
				errs[i] = err
				return
			}
			// Hold briefly so the goroutines genuinely contend on UL-301.
			time.Sleep(20 * time.Millisecond)
			errs[i] = locker.Release(ctx, handle)
		}(i, flightIDs)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "acquirer %d", i)
	}
	assert.Less(t, time.Since(start), budget)

	for _, flightID := range []string{"UL-300", "UL-301", "UL-302"} {
		assert.False(t, srv.Exists("lock:flight:"+flightID))
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	locker, _ := setupLocker(t)

	blocker, err := locker.Acquire(context.Background(), "UL-300", 10*time.Second, time.Second)
	require.NoError(t, err)
	defer locker.Release(context.Background(), blocker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, "UL-300", 10*time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseNilHandle(t *testing.T) {
	locker, _ := setupLocker(t)
	assert.NoError(t, locker.Release(context.Background(), nil))
}
