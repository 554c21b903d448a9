package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

func setupCache(t *testing.T) *LocationCache {
	t.Helper()

	addr := os.Getenv("RIDE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RIDE_TEST_REDIS_ADDR not set; skipping redis tests")
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	return NewLocationCache(rdb, time.Minute)
}

func TestLocationCache_Monotonic(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	rideID := uuid.New()
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	newer := models.DriverLocation{
		RideID:     rideID,
		DriverID:   uuid.New(),
		Coordinate: models.Coordinate{Latitude: 23.79, Longitude: 90.41},
		Heading:    90,
		Speed:      30,
		RecordedAt: t0,
	}
	older := newer
	older.Coordinate.Latitude = 23.70
	older.RecordedAt = t0.Add(-time.Second)

	if _, err := c.Get(ctx, rideID); !errors.Is(err, types.ErrCacheMiss) {
		t.Fatalf("want ErrCacheMiss on empty cache, got %v", err)
	}

	stored, err := c.Set(ctx, newer)
	if err != nil || !stored {
		t.Fatalf("newer must be stored: stored=%v err=%v", stored, err)
	}
	stored, err = c.Set(ctx, older)
	if err != nil || stored {
		t.Fatalf("older must be ignored: stored=%v err=%v", stored, err)
	}

	got, err := c.Get(ctx, rideID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Coordinate.Latitude != 23.79 || !got.RecordedAt.Equal(t0) {
		t.Fatalf("cache regressed: %+v", got)
	}

	// equal timestamps replace the stored value
	same := newer
	same.Speed = 10
	if stored, err := c.Set(ctx, same); err != nil || !stored {
		t.Fatalf("equal timestamp must be stored: stored=%v err=%v", stored, err)
	}
}

func TestLocationCache_NanosecondOrder(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	rideID := uuid.New()
	t0 := time.Date(2026, time.March, 1, 8, 0, 0, 500, time.UTC)
	newer := models.DriverLocation{RideID: rideID, Coordinate: models.Coordinate{Latitude: 23.79, Longitude: 90.41}, RecordedAt: t0}
	older := newer
	older.Coordinate.Latitude = 23.70
	older.RecordedAt = t0.Add(-time.Nanosecond)

	if stored, err := c.Set(ctx, newer); err != nil || !stored {
		t.Fatalf("newer must be stored: stored=%v err=%v", stored, err)
	}
	if stored, err := c.Set(ctx, older); err != nil || stored {
		t.Fatalf("sample 1ns older must be ignored: stored=%v err=%v", stored, err)
	}
}

func TestSortableTimestamp(t *testing.T) {
	base := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		early, later time.Time
	}{
		{"one nanosecond", base, base.Add(time.Nanosecond)},
		{"different digit counts", time.Unix(0, 999), base},
		{"far future", base, base.AddDate(200, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := sortableTimestamp(tt.early), sortableTimestamp(tt.later)
			if len(a) != len(b) {
				t.Fatalf("width differs: %q vs %q", a, b)
			}
			if a >= b {
				t.Fatalf("want %q < %q", a, b)
			}
		})
	}

	if got := sortableTimestamp(time.Unix(-5, 0)); got != "00000000000000000000" {
		t.Fatalf("pre-epoch must clamp to zero, got %q", got)
	}
}

func TestLocationKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b")
	if got := locationKey(id); got != "ride:6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b:location" {
		t.Fatalf("unexpected key %q", got)
	}
}
