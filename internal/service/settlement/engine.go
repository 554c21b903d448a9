// Package settlement splits the fare of a paid ride into platform commission and driver earnings.
package settlement

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

const DefaultCommissionRate = 0.15

type Engine struct {
	repo           Repo
	trm            trm.TxManager
	commissionRate float64
	l              logger.Logger
	now            func() time.Time
}

// NewEngine returns a settlement engine. A rate outside [0, 1] falls back to DefaultCommissionRate.
func NewEngine(repo Repo, trm trm.TxManager, commissionRate float64, l logger.Logger) *Engine {
	if commissionRate < 0 || commissionRate > 1 {
		commissionRate = DefaultCommissionRate
	}
	return &Engine{
		repo:           repo,
		trm:            trm,
		commissionRate: commissionRate,
		l:              l,
		now:            time.Now,
	}
}

// Split returns the platform commission and the driver earnings of totalFare.
func Split(totalFare, rate float64) (commission, earnings float64) {
	commission = round2(totalFare * rate)
	earnings = round2(totalFare - commission)
	return commission, earnings
}

// Settle writes the trip history and earnings records of a completed and paid ride
// in one transaction. Earnings are written last: when they already exist the call
// is a no-op reporting already_settled.
func (e *Engine) Settle(ctx context.Context, ride *models.Ride) (models.SettlementResult, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionSettle), ride.ID.String())

	if ride.Status != types.StatusCompleted || ride.PaymentStatus != types.PaymentCompleted {
		return models.SettlementResult{}, wrap.Error(ctx, fmt.Errorf("%w: ride %s with payment %s can not be settled",
			types.ErrInvalidTransition, ride.Status, ride.PaymentStatus))
	}
	if ride.DriverID == nil {
		return models.SettlementResult{}, wrap.Error(ctx, fmt.Errorf("%w: driver_id", types.ErrMissingField))
	}

	tripDate := e.now().UTC()
	if ride.RideCompletedAt != nil {
		tripDate = ride.RideCompletedAt.UTC()
	}

	commission, driverShare := Split(ride.Fare.TotalFare, e.commissionRate)
	earnings := &models.EarningsRecord{
		ID:                 uuid.New(),
		DriverID:           *ride.DriverID,
		RideID:             ride.ID,
		Date:               tripDate,
		TotalFare:          ride.Fare.TotalFare,
		PlatformCommission: commission,
		DriverEarnings:     driverShare,
		VehicleType:        ride.VehicleType,
		PaymentMethod:      ride.PaymentMethod,
	}
	trip := tripHistory(ride, tripDate)

	result := models.SettlementResult{Status: models.SettlementSettled, Earnings: earnings}

	err := e.trm.Do(ctx, func(ctx context.Context) error {
		if _, err := e.repo.InsertTripHistory(ctx, trip); err != nil {
			return fmt.Errorf("failed to write trip history: %w", err)
		}

		inserted, err := e.repo.InsertEarnings(ctx, earnings)
		if err != nil {
			return fmt.Errorf("failed to write earnings: %w", err)
		}
		if inserted {
			return nil
		}

		existing, err := e.repo.GetEarnings(ctx, ride.ID)
		if err != nil {
			return fmt.Errorf("failed to read existing earnings: %w", err)
		}
		result = models.SettlementResult{Status: models.SettlementAlreadySettled, Earnings: existing}
		return nil
	})
	if err != nil {
		metrics.RecordSettlement("failed")
		return models.SettlementResult{}, wrap.Error(ctx, err)
	}

	metrics.RecordSettlement(string(result.Status))
	if result.Status == models.SettlementSettled {
		e.l.Info(ctx, "ride settled",
			"total_fare", earnings.TotalFare,
			"platform_commission", earnings.PlatformCommission,
			"driver_earnings", earnings.DriverEarnings,
		)
	} else {
		e.l.Debug(ctx, "ride already settled")
	}

	return result, nil
}

func tripHistory(ride *models.Ride, tripDate time.Time) *models.TripHistoryRecord {
	duration := ride.EstimatedDurationMin
	if ride.ActualDurationMin != nil {
		duration = *ride.ActualDurationMin
	}
	return &models.TripHistoryRecord{
		ID:            uuid.New(),
		RideID:        ride.ID,
		CustomerID:    ride.CustomerID,
		DriverID:      *ride.DriverID,
		Pickup:        ride.Pickup,
		Destination:   ride.Destination,
		VehicleType:   ride.VehicleType,
		Fare:          ride.Fare,
		DistanceKm:    ride.DistanceKm,
		DurationMin:   duration,
		PaymentMethod: ride.PaymentMethod,
		TripDate:      tripDate,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
