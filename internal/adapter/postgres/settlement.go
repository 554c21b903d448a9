package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// SettlementRepo writes trip history and earnings. Both tables hold at most one row per ride.
type SettlementRepo struct {
	db *pgxpool.Pool
}

func NewSettlementRepo(db *pgxpool.Pool) *SettlementRepo {
	return &SettlementRepo{db: db}
}

func (r *SettlementRepo) InsertTripHistory(ctx context.Context, rec *models.TripHistoryRecord) (bool, error) {
	const op = "SettlementRepo.InsertTripHistory"
	query := `
		INSERT INTO trip_history (
			id, ride_id, customer_id, driver_id,
			pickup_address, pickup_latitude, pickup_longitude,
			dest_address, dest_latitude, dest_longitude,
			vehicle_type, base_fare, distance_fare, time_fare, surge_multiplier, total_fare,
			distance_km, duration_min, payment_method, trip_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (ride_id) DO NOTHING;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		rec.ID, rec.RideID, rec.CustomerID, rec.DriverID,
		rec.Pickup.Address, rec.Pickup.Latitude, rec.Pickup.Longitude,
		rec.Destination.Address, rec.Destination.Latitude, rec.Destination.Longitude,
		rec.VehicleType, rec.Fare.BaseFare, rec.Fare.DistanceFare, rec.Fare.TimeFare, rec.Fare.SurgeMultiplier, rec.Fare.TotalFare,
		rec.DistanceKm, rec.DurationMin, rec.PaymentMethod, rec.TripDate,
	)
	if err != nil {
		return false, dbError(ctx, op, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepo) InsertEarnings(ctx context.Context, rec *models.EarningsRecord) (bool, error) {
	const op = "SettlementRepo.InsertEarnings"
	query := `
		INSERT INTO earnings (id, driver_id, ride_id, date, total_fare, platform_commission, driver_earnings, vehicle_type, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ride_id) DO NOTHING;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		rec.ID, rec.DriverID, rec.RideID, rec.Date,
		rec.TotalFare, rec.PlatformCommission, rec.DriverEarnings,
		rec.VehicleType, rec.PaymentMethod,
	)
	if err != nil {
		return false, dbError(ctx, op, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepo) GetEarnings(ctx context.Context, rideID uuid.UUID) (*models.EarningsRecord, error) {
	const op = "SettlementRepo.GetEarnings"
	query := `
		SELECT id, driver_id, ride_id, date, total_fare, platform_commission, driver_earnings, vehicle_type, payment_method
		FROM earnings
		WHERE ride_id = $1;`

	var rec models.EarningsRecord
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, rideID).Scan(
		&rec.ID, &rec.DriverID, &rec.RideID, &rec.Date,
		&rec.TotalFare, &rec.PlatformCommission, &rec.DriverEarnings,
		&rec.VehicleType, &rec.PaymentMethod,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, dbError(ctx, op, err)
	}
	return &rec, nil
}

func (r *SettlementRepo) ListUnsettled(ctx context.Context, limit int) ([]*models.Ride, error) {
	const op = "SettlementRepo.ListUnsettled"
	query := `
		SELECT ` + prefixed("r.", rideColumns) + `
		FROM rides r
		LEFT JOIN earnings e ON e.ride_id = r.id
		WHERE r.status = 'completed' AND r.payment_status = 'completed' AND e.id IS NULL
		ORDER BY r.ride_completed_at
		LIMIT $1;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, limit)
	if err != nil {
		return nil, dbError(ctx, op, err)
	}
	defer rows.Close()

	var rides []*models.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, dbError(ctx, op, err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(ctx, op, err)
	}
	return rides, nil
}
