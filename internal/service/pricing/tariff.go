package pricing

import "github.com/Temutjin2k/ride-dispatch/internal/domain/types"

// Tariff is the fare model of one vehicle type in whole currency units.
type Tariff struct {
	BaseFare        float64
	PerKm           float64
	PerMinute       float64
	MinimumFare     float64
	AverageSpeedKmh float64
}

// DefaultTariffs returns the reference fare table.
func DefaultTariffs() map[types.VehicleType]Tariff {
	return map[types.VehicleType]Tariff{
		types.VehicleBike: {BaseFare: 20, PerKm: 8, PerMinute: 1, MinimumFare: 30, AverageSpeedKmh: 25},
		types.VehicleCNG:  {BaseFare: 30, PerKm: 12, PerMinute: 1.5, MinimumFare: 50, AverageSpeedKmh: 20},
		types.VehicleCar:  {BaseFare: 50, PerKm: 20, PerMinute: 2, MinimumFare: 80, AverageSpeedKmh: 30},
	}
}
