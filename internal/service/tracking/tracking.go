// Package tracking ingests driver positions for active rides and serves the latest and historical samples.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type Service struct {
	rides     RideRepo
	locations LocationRepo
	cache     LocationCache
	notifier  Notifier
	trm       trm.TxManager
	l         logger.Logger
	now       func() time.Time
}

// New builds the tracker. cache may be nil, reads then go straight to the store.
func New(rides RideRepo, locations LocationRepo, cache LocationCache, notifier Notifier, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		rides:     rides,
		locations: locations,
		cache:     cache,
		notifier:  notifier,
		trm:       trm,
		l:         l,
		now:       time.Now,
	}
}

// Record appends a sample for the ride's assigned driver and advances the latest
// location cache unless the sample is older than the cached one.
// A zero RecordedAt is stamped with the current time.
func (s *Service) Record(ctx context.Context, sample models.LocationSample) (*models.LocationSample, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionRecordLocation), sample.RideID.String())
	ctx = wrap.WithUserID(ctx, sample.DriverID.String())

	if err := validateSample(sample); err != nil {
		metrics.RecordLocationSample("rejected")
		return nil, wrap.Error(ctx, err)
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = s.now()
	}
	sample.RecordedAt = sample.RecordedAt.UTC()

	ride, err := s.rides.Get(ctx, sample.RideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ride.IsDriver(sample.DriverID) {
		metrics.RecordLocationSample("rejected")
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}
	if !ride.Status.IsActive() {
		metrics.RecordLocationSample("rejected")
		return nil, wrap.Error(ctx, fmt.Errorf("%w: status %s", types.ErrInactiveRide, ride.Status))
	}

	loc := sample.ToDriverLocation()
	var advanced bool

	// Append re-checks the status under a row lock; the read above may be stale.
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.locations.Append(ctx, &sample); err != nil {
			return fmt.Errorf("failed to append location sample: %w", err)
		}
		var err error
		advanced, err = s.rides.UpdateLatestLocation(ctx, loc)
		if err != nil {
			return fmt.Errorf("failed to update latest location: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrInactiveRide) {
			metrics.RecordLocationSample("rejected")
		}
		return nil, wrap.Error(ctx, err)
	}

	if advanced {
		metrics.RecordLocationSample("stored")
		s.setCache(ctx, loc)
	} else {
		metrics.RecordLocationSample("stale")
		s.l.Debug(ctx, "older sample stored in history only", "recorded_at", loc.RecordedAt)
	}

	s.notifier.DriverLocation(ctx, loc)

	return &sample, nil
}

func validateSample(sample models.LocationSample) error {
	if sample.RideID.IsZero() {
		return fmt.Errorf("%w: ride_id", types.ErrMissingField)
	}
	if err := geo.Validate(sample.Coordinate); err != nil {
		return err
	}
	if math.IsNaN(sample.Heading) || sample.Heading < 0 || sample.Heading >= 360 {
		return fmt.Errorf("%w: heading %v out of [0, 360)", types.ErrInvalidLocationSample, sample.Heading)
	}
	if math.IsNaN(sample.Speed) || sample.Speed < 0 {
		return fmt.Errorf("%w: negative speed %v", types.ErrInvalidLocationSample, sample.Speed)
	}
	return nil
}

func (s *Service) setCache(ctx context.Context, loc models.DriverLocation) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Set(ctx, loc); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionCacheFailed), "failed to cache latest location", "error", err.Error())
	}
}

// Latest returns the cached latest location, falling back to the newest sample.
// Only the ride's customer, its assigned driver and admins may read it.
func (s *Service) Latest(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.DriverLocation, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionGetLocation), rideID.String())
	ctx = wrap.WithUserID(ctx, caller.ID.String())

	ride, err := s.viewable(ctx, rideID, caller)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		loc, err := s.cache.Get(ctx, rideID)
		switch {
		case err == nil:
			return loc, nil
		case !errors.Is(err, types.ErrCacheMiss):
			s.l.Warn(wrap.WithAction(ctx, types.ActionCacheFailed), "location cache read failed", "error", err.Error())
		}
	}

	if ride.LatestLocation != nil {
		loc := *ride.LatestLocation
		s.setCache(ctx, loc)
		return &loc, nil
	}

	sample, err := s.locations.Latest(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	loc := sample.ToDriverLocation()
	return &loc, nil
}

// History returns up to limit samples, newest first, under the same access
// rule as Latest. The limit defaults to DefaultHistoryLimit and is capped at MaxHistoryLimit.
func (s *Service) History(ctx context.Context, rideID uuid.UUID, caller models.Caller, limit int) ([]models.LocationSample, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionLocationHistory), rideID.String())
	ctx = wrap.WithUserID(ctx, caller.ID.String())

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	if _, err := s.viewable(ctx, rideID, caller); err != nil {
		return nil, err
	}

	samples, err := s.locations.History(ctx, rideID, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to read location history: %w", err))
	}
	return samples, nil
}

func (s *Service) viewable(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.Ride, error) {
	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ride.CanView(caller) {
		return nil, wrap.Error(ctx, types.ErrNotAuthorized)
	}
	return ride, nil
}
