package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// SeatCache is the denormalized current-availability projection kept in
// Redis. It is not authoritative: the inventory engine rewrites entries
// after every committed database mutation, and consumers repair misses by
// reading through from the flight store.
type SeatCache struct {
	client *redis.Client
}

// NewSeatCache creates a new SeatCache
func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

func seatKey(flightID string) string {
	return fmt.Sprintf("flight:%s:seats", flightID)
}

// Get returns the cached seat count for a flight. ok is false on a miss.
func (c *SeatCache) Get(ctx context.Context, flightID string) (int, bool, error) {
	val, err := c.client.Get(ctx, seatKey(flightID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cached seats: %w", err)
	}

	seats, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached seat count for %s: %w", flightID, err)
	}
	return seats, true, nil
}

// Set writes the seat count for a flight.
func (c *SeatCache) Set(ctx context.Context, flightID string, seats int) error {
	if err := c.client.Set(ctx, seatKey(flightID), seats, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cached seats: %w", err)
	}
	return nil
}

// Delete drops the cached entry for a flight.
func (c *SeatCache) Delete(ctx context.Context, flightID string) error {
	if err := c.client.Del(ctx, seatKey(flightID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached seats: %w", err)
	}
	return nil
}

// Increment adds delta to the cached seat count.
func (c *SeatCache) Increment(ctx context.Context, flightID string, delta int) error {
	if err := c.client.IncrBy(ctx, seatKey(flightID), int64(delta)).Err(); err != nil {
		return fmt.Errorf("failed to increment cached seats: %w", err)
	}
	return nil
}

// Decrement subtracts delta from the cached seat count.
func (c *SeatCache) Decrement(ctx context.Context, flightID string, delta int) error {
	if err := c.client.DecrBy(ctx, seatKey(flightID), int64(delta)).Err(); err != nil {
		return fmt.Errorf("failed to decrement cached seats: %w", err)
	}
	return nil
}

// MinAcross returns the minimum cached seat count across the given flights.
// Any flight without a cached value counts as 0. Search uses this for
// availability filtering; a few seconds of staleness is acceptable there.
func (c *SeatCache) MinAcross(ctx context.Context, flightIDs []string) (int, error) {
	if len(flightIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, len(flightIDs))
	for i, id := range flightIDs {
		keys[i] = seatKey(id)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cached seats: %w", err)
	}

	min := -1
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			return 0, nil // missing entry
		}
		seats, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("corrupt cached seat count: %w", err)
		}
		if min < 0 || seats < min {
			min = seats
		}
	}
	if min < 0 {
		min = 0
	}
	return min, nil
}
