package ride

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*
RideService creates rides and drives them through the lifecycle:
requested → accepted → picked_up → in_progress → completed, with cancellation
allowed from requested and accepted. Every status write is conditional on the
status that was read, so concurrent transitions of one ride cannot both win.
*/
type RideService struct {
	repo     RideRepo
	pricer   Pricer
	notifier Notifier
	logger   logger.Logger

	otp func() (string, error)
	now func() time.Time
}

func NewRideService(repo RideRepo, pricer Pricer, notifier Notifier, logger logger.Logger) *RideService {
	return &RideService{
		repo:     repo,
		pricer:   pricer,
		notifier: notifier,
		logger:   logger,
		otp:      GenerateOTP,
		now:      time.Now,
	}
}

// Create prices the trip and stores a new ride in status requested.
func (s *RideService) Create(ctx context.Context, req models.RideRequest) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionCreateRide)
	ctx = wrap.WithUserID(ctx, req.CustomerID.String())

	if err := validateRequest(req); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	estimate, err := s.pricer.FareEstimate(req.Pickup.Coordinate, req.Destination.Coordinate, req.VehicleType, req.Surge)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	otp, err := s.otp()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	ride := &models.Ride{
		ID:                   uuid.New(),
		CustomerID:           req.CustomerID,
		Pickup:               req.Pickup,
		Destination:          req.Destination,
		VehicleType:          req.VehicleType,
		Status:               types.StatusRequested,
		Fare:                 estimate.Fare,
		DistanceKm:           estimate.DistanceKm,
		EstimatedDurationMin: estimate.EstimatedDurationMin,
		OTP:                  otp,
		PaymentMethod:        req.PaymentMethod,
		PaymentStatus:        types.PaymentPending,
		CreatedAt:            s.now().UTC(),
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	if err := s.repo.Create(ctx, ride); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not create ride in repo: %w", err))
	}

	metrics.RecordRideCreated(ride.VehicleType.String())
	s.logger.Info(ctx, "ride created",
		"vehicle_type", ride.VehicleType,
		"distance_km", ride.DistanceKm,
		"total_fare", ride.Fare.TotalFare,
	)

	return ride, nil
}

func validateRequest(req models.RideRequest) error {
	if req.CustomerID.IsZero() {
		return fmt.Errorf("%w: customer_id", types.ErrMissingField)
	}
	if strings.TrimSpace(req.Pickup.Address) == "" {
		return fmt.Errorf("%w: pickup address", types.ErrMissingField)
	}
	if strings.TrimSpace(req.Destination.Address) == "" {
		return fmt.Errorf("%w: destination address", types.ErrMissingField)
	}
	if !req.VehicleType.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidVehicleType, req.VehicleType)
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	return nil
}

// Get returns the full ride projection to its customer, its assigned driver or an admin.
func (s *RideService) Get(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionGetRide), rideID.String())
	ctx = wrap.WithUserID(ctx, caller.ID.String())

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ride.CanView(caller) {
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}
	return ride, nil
}

// Advance moves a ride forward on behalf of its assigned driver.
// Checks run in order: transition graph, driver assignment, then the OTP gate for pickup.
// A wrong OTP leaves the ride untouched and may be retried.
func (s *RideService) Advance(ctx context.Context, rideID, driverID uuid.UUID, target types.RideStatus, otp string) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionAdvanceStatus), rideID.String())
	ctx = wrap.WithUserID(ctx, driverID.String())

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if !isDriverTarget(target) || !CanTransition(ride.Status, target) {
		s.logger.Warn(ctx, "rejected status transition", "from", ride.Status, "to", target)
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s → %s", types.ErrInvalidTransition, ride.Status, target))
	}

	if !ride.IsDriver(driverID) {
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}

	if target == types.StatusPickedUp && otp != ride.OTP {
		s.logger.Warn(ctx, "otp mismatch at pickup")
		return nil, wrap.Error(ctx, types.ErrInvalidOTP)
	}

	next := ride.Clone()
	applyStatus(next, target, s.now().UTC())

	if err := s.repo.UpdateStatus(ctx, next, ride.Status); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not update ride status: %w", err))
	}

	metrics.RecordTransition(target.String())
	s.logger.Info(ctx, "ride status changed", "from", ride.Status, "to", next.Status)

	if next.Status == types.StatusCompleted {
		s.notifier.RideCompleted(ctx, next)
	} else {
		s.notifier.StatusChanged(ctx, next)
	}

	return next, nil
}

func isDriverTarget(s types.RideStatus) bool {
	return slices.Contains(driverStatuses, s)
}

// Cancel cancels a requested or accepted ride. Customers may cancel their own rides,
// drivers only rides assigned to them, admins any ride.
func (s *RideService) Cancel(ctx context.Context, rideID uuid.UUID, actor models.Caller, reason string) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionCancelRide), rideID.String())
	ctx = wrap.WithUserID(ctx, actor.ID.String())

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if !CanTransition(ride.Status, types.StatusCancelled) {
		s.logger.Warn(ctx, "ride can not be cancelled", "status", ride.Status)
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s → %s", types.ErrInvalidTransition, ride.Status, types.StatusCancelled))
	}

	by, ok := types.CancelledByRole(actor.Role)
	if !ok || !canCancel(ride, actor) {
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}

	next := ride.Clone()
	applyCancel(next, by, strings.TrimSpace(reason), s.now().UTC())

	if err := s.repo.UpdateStatus(ctx, next, ride.Status); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not cancel ride: %w", err))
	}

	metrics.RecordTransition(types.StatusCancelled.String())
	s.logger.Info(ctx, "ride cancelled", "from", ride.Status, "cancelled_by", by)

	s.notifier.RideCancelled(ctx, next)

	return next, nil
}

func canCancel(ride *models.Ride, actor models.Caller) bool {
	switch actor.Role {
	case types.RolePassenger:
		return ride.IsCustomer(actor.ID)
	case types.RoleDriver:
		return ride.IsDriver(actor.ID)
	case types.RoleAdmin:
		return true
	}
	return false
}
