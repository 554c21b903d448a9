package tracking

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type RideRepo interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// UpdateLatestLocation replaces the cached location of an active ride unless
	// the cached one is newer. Reports whether the cache changed.
	UpdateLatestLocation(ctx context.Context, loc models.DriverLocation) (bool, error)
}

type LocationRepo interface {
	Append(ctx context.Context, sample *models.LocationSample) error
	// Latest returns the newest sample by timestamp or ErrNoLocationData.
	Latest(ctx context.Context, rideID uuid.UUID) (*models.LocationSample, error)
	// History returns up to limit samples, newest first.
	History(ctx context.Context, rideID uuid.UUID, limit int) ([]models.LocationSample, error)
}

// LocationCache is the hot copy of the latest location. Misses return ErrCacheMiss.
type LocationCache interface {
	Set(ctx context.Context, loc models.DriverLocation) (bool, error)
	Get(ctx context.Context, rideID uuid.UUID) (*models.DriverLocation, error)
}

type Notifier interface {
	DriverLocation(ctx context.Context, loc models.DriverLocation)
}
