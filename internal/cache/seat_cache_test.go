package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*SeatCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSeatCache(client), srv
}

func TestSeatCacheGetSet(t *testing.T) {
	ctx := context.Background()
	seatCache, _ := setupCache(t)

	t.Run("Miss", func(t *testing.T) {
		seats, ok, err := seatCache.Get(ctx, "UL-300")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, seats)
	})

	t.Run("Hit", func(t *testing.T) {
		require.NoError(t, seatCache.Set(ctx, "UL-300", 42))

		seats, ok, err := seatCache.Get(ctx, "UL-300")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 42, seats)
	})
}

func TestSeatCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	seatCache, srv := setupCache(t)

	require.NoError(t, srv.Set("flight:UL-300:seats", "not-a-number"))

	_, _, err := seatCache.Get(ctx, "UL-300")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt cached seat count")
}

func TestSeatCacheDelete(t *testing.T) {
	ctx := context.Background()
	seatCache, _ := setupCache(t)

	require.NoError(t, seatCache.Set(ctx, "UL-300", 10))
	require.NoError(t, seatCache.Delete(ctx, "UL-300"))

	_, ok, err := seatCache.Get(ctx, "UL-300")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeatCacheIncrementDecrement(t *testing.T) {
	ctx := context.Background()
	seatCache, _ := setupCache(t)

	require.NoError(t, seatCache.Set(ctx, "UL-300", 10))
	require.NoError(t, seatCache.Decrement(ctx, "UL-300", 3))
	require.NoError(t, seatCache.Increment(ctx, "UL-300", 1))

	seats, ok, err := seatCache.Get(ctx, "UL-300")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, seats)
}

func TestSeatCacheMinAcross(t *testing.T) {
	ctx := context.Background()
	seatCache, _ := setupCache(t)

	t.Run("All Cached", func(t *testing.T) {
		require.NoError(t, seatCache.Set(ctx, "UL-300", 12))
		require.NoError(t, seatCache.Set(ctx, "UL-301", 4))

		min, err := seatCache.MinAcross(ctx, []string{"UL-300", "UL-301"})
		require.NoError(t, err)
		assert.Equal(t, 4, min)
	})

	t.Run("Missing Leg Counts As Zero", func(t *testing.T) {
		min, err := seatCache.MinAcross(ctx, []string{"UL-300", "UL-999"})
		require.NoError(t, err)
		assert.Zero(t, min)
	})

	t.Run("No Flights", func(t *testing.T) {
		min, err := seatCache.MinAcross(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, min)
	})
}
