package ride

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*=====================Ride Repository============================*/

type RideRepo interface {
	Create(ctx context.Context, ride *models.Ride) error
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// UpdateStatus writes the lifecycle fields of ride only if the stored status is still expected.
	// Returns ErrInvalidTransition when the status moved underneath.
	UpdateStatus(ctx context.Context, ride *models.Ride, expected types.RideStatus) error
}

/*========================Pricing=================================*/

type Pricer interface {
	FareEstimate(pickup, destination models.Coordinate, vt types.VehicleType, flags models.SurgeFlags) (models.FareEstimate, error)
}

/*========================Notifier================================*/

type Notifier interface {
	StatusChanged(ctx context.Context, ride *models.Ride)
	RideCompleted(ctx context.Context, ride *models.Ride)
	RideCancelled(ctx context.Context, ride *models.Ride)
}
