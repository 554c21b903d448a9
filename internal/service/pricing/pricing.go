// Package pricing estimates ride durations and fares per vehicle type.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
)

type Engine struct {
	tariffs map[types.VehicleType]Tariff
	surge   SurgeRules
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTariffs replaces the default fare table.
func WithTariffs(tariffs map[types.VehicleType]Tariff) Option {
	return func(e *Engine) {
		e.tariffs = tariffs
	}
}

func New(surge SurgeRules, opts ...Option) *Engine {
	e := &Engine{
		tariffs: DefaultTariffs(),
		surge:   surge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) tariff(vt types.VehicleType) (Tariff, error) {
	t, ok := e.tariffs[vt]
	if !ok {
		return Tariff{}, fmt.Errorf("%w: %q", types.ErrInvalidVehicleType, vt)
	}
	return t, nil
}

// EstimateDuration returns the travel time in whole minutes at the type's average speed.
func (e *Engine) EstimateDuration(distanceKm float64, vt types.VehicleType) (int, error) {
	t, err := e.tariff(vt)
	if err != nil {
		return 0, err
	}
	if distanceKm <= 0 || t.AverageSpeedKmh <= 0 {
		return 0, nil
	}
	return int(math.Round(distanceKm / t.AverageSpeedKmh * 60)), nil
}

// SurgeMultiplier returns the multiplier in effect at now.
func (e *Engine) SurgeMultiplier(now time.Time, flags models.SurgeFlags) float64 {
	return e.surge.Multiplier(now, flags)
}

// CalculateFare prices a trip at the current time. Negative inputs count as zero.
func (e *Engine) CalculateFare(distanceKm float64, durationMin int, vt types.VehicleType, flags models.SurgeFlags) (models.Fare, error) {
	t, err := e.tariff(vt)
	if err != nil {
		return models.Fare{}, err
	}

	distanceKm = math.Max(0, distanceKm)
	durationMin = max(0, durationMin)

	fare := models.Fare{
		BaseFare:        math.Round(t.BaseFare),
		DistanceFare:    math.Round(distanceKm * t.PerKm),
		TimeFare:        math.Round(float64(durationMin) * t.PerMinute),
		SurgeMultiplier: e.SurgeMultiplier(e.now(), flags),
	}

	subtotal := (fare.BaseFare + fare.DistanceFare + fare.TimeFare) * fare.SurgeMultiplier
	fare.TotalFare = math.Max(math.Round(subtotal), math.Round(t.MinimumFare))

	return fare, nil
}

// FareEstimate quotes one vehicle type between two coordinates.
func (e *Engine) FareEstimate(pickup, destination models.Coordinate, vt types.VehicleType, flags models.SurgeFlags) (models.FareEstimate, error) {
	distance, err := geo.DistanceKm(pickup, destination)
	if err != nil {
		return models.FareEstimate{}, err
	}

	duration, err := e.EstimateDuration(distance, vt)
	if err != nil {
		return models.FareEstimate{}, err
	}

	fare, err := e.CalculateFare(distance, duration, vt, flags)
	if err != nil {
		return models.FareEstimate{}, err
	}

	return models.FareEstimate{
		VehicleType:          vt,
		DistanceKm:           round2(distance),
		EstimatedDurationMin: duration,
		Fare:                 fare,
		SurgeActive:          fare.SurgeMultiplier > 1.0,
	}, nil
}

// AllVehicleEstimates quotes every configured vehicle type in display order.
func (e *Engine) AllVehicleEstimates(pickup, destination models.Coordinate, flags models.SurgeFlags) ([]models.FareEstimate, error) {
	estimates := make([]models.FareEstimate, 0, len(e.tariffs))
	for _, vt := range types.VehicleTypes {
		if _, ok := e.tariffs[vt]; !ok {
			continue
		}
		est, err := e.FareEstimate(pickup, destination, vt, flags)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, est)
	}
	return estimates, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
