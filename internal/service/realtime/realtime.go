// Package realtime authorizes ride channel subscribers and fans ride events out to them.
package realtime

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type RideGetter interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
}

// Broadcaster delivers msg to every local subscriber of key and reports how many received it.
type Broadcaster interface {
	Publish(ctx context.Context, key uuid.UUID, msg any) int
}

type Service struct {
	rides RideGetter
	hub   Broadcaster
	l     logger.Logger
}

func New(rides RideGetter, hub Broadcaster, l logger.Logger) *Service {
	return &Service{
		rides: rides,
		hub:   hub,
		l:     l,
	}
}

// Authorize allows the ride's customer, its assigned driver and admins to subscribe.
func (s *Service) Authorize(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionRealtimeSubscribe), rideID.String())
	ctx = wrap.WithUserID(ctx, caller.ID.String())

	if caller.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if !ride.CanView(caller) {
		s.l.Warn(ctx, "subscription refused", "role", caller.Role)
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}

	return ride, nil
}

// Dispatch forwards an event received from the broker to the subscribers of its ride.
func (s *Service) Dispatch(ctx context.Context, event models.RealtimeEvent) error {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionRealtimeDispatch), event.RideID.String())

	if event.RideID.IsZero() {
		s.l.Warn(ctx, "dropping event without ride id", "event", event.Type.String())
		return nil
	}

	delivered := s.hub.Publish(ctx, event.RideID, event)
	s.l.Debug(ctx, "event dispatched", "event", event.Type.String(), "subscribers", delivered)
	return nil
}
