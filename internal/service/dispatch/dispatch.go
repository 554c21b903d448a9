// Package dispatch surfaces requested rides to nearby drivers and awards each ride to exactly one of them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type RideRepo interface {
	// ListRequested returns unassigned requested rides of vt whose pickup lies in box.
	ListRequested(ctx context.Context, vt types.VehicleType, box geo.Box) ([]*models.Ride, error)
	// Accept assigns driverID in one conditional write. Returns ErrRideUnavailable
	// when the ride is not requested, already has a driver, or does not exist.
	Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
}

type Notifier interface {
	DriverAssigned(ctx context.Context, ride *models.Ride)
}

type Config struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

type Service struct {
	repo     RideRepo
	notifier Notifier
	cfg      Config
	l        logger.Logger
}

func New(repo RideRepo, notifier Notifier, cfg Config, l logger.Logger) *Service {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 5
	}
	if cfg.MaxRadiusKm < cfg.DefaultRadiusKm {
		cfg.MaxRadiusKm = cfg.DefaultRadiusKm
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		l:        l,
	}
}

// FindAvailable lists requested rides of the driver's vehicle type within radiusKm
// of the driver, nearest pickup first and earliest created on ties.
// A non-positive radius means the default radius; larger radii are capped.
func (s *Service) FindAvailable(ctx context.Context, driverLocation models.Coordinate, vt types.VehicleType, radiusKm float64) ([]models.AvailableRide, error) {
	ctx = wrap.WithAction(ctx, types.ActionListAvailable)

	if !vt.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidVehicleType, vt))
	}

	radiusKm = s.radius(radiusKm)
	box, err := geo.BoundingBox(driverLocation, radiusKm)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	candidates, err := s.repo.ListRequested(ctx, vt, box)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list requested rides: %w", err))
	}

	available := make([]models.AvailableRide, 0, len(candidates))
	for _, ride := range candidates {
		if ride.Status != types.StatusRequested || ride.DriverID != nil || ride.VehicleType != vt {
			continue
		}
		d, err := geo.DistanceKm(driverLocation, ride.Pickup.Coordinate)
		if err != nil {
			s.l.Warn(ctx, "skipping ride with invalid pickup", "ride_id", ride.ID, "error", err.Error())
			continue
		}
		if d > radiusKm {
			continue
		}
		available = append(available, models.AvailableRide{Ride: ride, DistanceToPickupKm: d})
	}

	sort.SliceStable(available, func(i, j int) bool {
		a, b := available[i], available[j]
		if a.DistanceToPickupKm != b.DistanceToPickupKm {
			return a.DistanceToPickupKm < b.DistanceToPickupKm
		}
		return a.Ride.CreatedAt.Before(b.Ride.CreatedAt)
	})

	s.l.Debug(ctx, "available rides listed", "vehicle_type", vt, "radius_km", radiusKm, "count", len(available))

	return available, nil
}

func (s *Service) radius(r float64) float64 {
	if r <= 0 {
		return s.cfg.DefaultRadiusKm
	}
	return min(r, s.cfg.MaxRadiusKm)
}

// Accept awards the ride to driverID. Of any number of concurrent calls for one
// ride exactly one succeeds, the others get ErrRideUnavailable.
func (s *Service) Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionAcceptRide), rideID.String())
	ctx = wrap.WithUserID(ctx, driverID.String())

	ride, err := s.repo.Accept(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, types.ErrRideUnavailable) {
			metrics.RecordAcceptConflict()
			s.l.Warn(ctx, "ride is no longer available")
		}
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordTransition(types.StatusAccepted.String())
	s.l.Info(ctx, "driver assigned to ride")

	s.notifier.DriverAssigned(ctx, ride)

	return ride, nil
}
