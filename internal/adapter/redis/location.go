// Package cache keeps the hot copy of each ride's latest driver location in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

const DefaultLocationTTL = 24 * time.Hour

// setIfNewer writes the location only when the stored timestamp is not newer.
// Timestamps are fixed-width decimal strings, so string order is time order
// without going through Lua numbers, which are doubles.
// KEYS[1] location key; ARGV[1] sortable timestamp; ARGV[2] json body; ARGV[3] ttl in ms.
var setIfNewer = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and string.len(cur) == string.len(ARGV[1]) and cur > ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'body', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// sortableTimestamp renders t as zero-padded unix nanoseconds. Times before
// the epoch are clamped to it.
func sortableTimestamp(t time.Time) string {
	return fmt.Sprintf("%020d", max(t.UnixNano(), 0))
}

type LocationCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewLocationCache(client *goredis.Client, ttl time.Duration) *LocationCache {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}
	return &LocationCache{client: client, ttl: ttl}
}

func locationKey(rideID uuid.UUID) string {
	return "ride:" + rideID.String() + ":location"
}

// Set stores loc unless a newer one is cached. Returns whether it was stored.
func (c *LocationCache) Set(ctx context.Context, loc models.DriverLocation) (bool, error) {
	const op = "LocationCache.Set"

	body, err := json.Marshal(loc)
	if err != nil {
		return false, fmt.Errorf("%s: marshal: %w", op, err)
	}

	stored, err := setIfNewer.Run(ctx, c.client,
		[]string{locationKey(loc.RideID)},
		sortableTimestamp(loc.RecordedAt), body, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionCacheFailed)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return stored == 1, nil
}

func (c *LocationCache) Get(ctx context.Context, rideID uuid.UUID) (*models.DriverLocation, error) {
	const op = "LocationCache.Get"

	body, err := c.client.HGet(ctx, locationKey(rideID), "body").Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, types.ErrCacheMiss
		}
		ctx = wrap.WithAction(ctx, types.ActionCacheFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	var loc models.DriverLocation
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return &loc, nil
}
