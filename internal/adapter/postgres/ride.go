package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `
	id, customer_id, driver_id,
	pickup_address, pickup_latitude, pickup_longitude,
	dest_address, dest_latitude, dest_longitude,
	vehicle_type, status,
	base_fare, distance_fare, time_fare, surge_multiplier, total_fare,
	distance_km, estimated_duration, actual_duration,
	otp, payment_method, payment_status, transaction_id,
	created_at, accepted_at, ride_started_at, ride_completed_at, cancelled_at,
	cancelled_by, cancellation_reason,
	latest_latitude, latest_longitude, latest_heading, latest_speed, latest_location_at`

// prefixed qualifies every column in cols with alias, for joins.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var (
		ride       models.Ride
		lat, lng   *float64
		heading    *float64
		speed      *float64
		locationAt *time.Time
	)

	err := row.Scan(
		&ride.ID, &ride.CustomerID, &ride.DriverID,
		&ride.Pickup.Address, &ride.Pickup.Latitude, &ride.Pickup.Longitude,
		&ride.Destination.Address, &ride.Destination.Latitude, &ride.Destination.Longitude,
		&ride.VehicleType, &ride.Status,
		&ride.Fare.BaseFare, &ride.Fare.DistanceFare, &ride.Fare.TimeFare, &ride.Fare.SurgeMultiplier, &ride.Fare.TotalFare,
		&ride.DistanceKm, &ride.EstimatedDurationMin, &ride.ActualDurationMin,
		&ride.OTP, &ride.PaymentMethod, &ride.PaymentStatus, &ride.TransactionID,
		&ride.CreatedAt, &ride.AcceptedAt, &ride.RideStartedAt, &ride.RideCompletedAt, &ride.CancelledAt,
		&ride.CancelledBy, &ride.CancellationReason,
		&lat, &lng, &heading, &speed, &locationAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lng != nil && locationAt != nil && ride.DriverID != nil {
		loc := models.DriverLocation{
			RideID:     ride.ID,
			DriverID:   *ride.DriverID,
			Coordinate: models.Coordinate{Latitude: *lat, Longitude: *lng},
			RecordedAt: locationAt.UTC(),
		}
		if heading != nil {
			loc.Heading = *heading
		}
		if speed != nil {
			loc.Speed = *speed
		}
		ride.LatestLocation = &loc
	}

	return &ride, nil
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) error {
	const op = "RideRepo.Create"
	query := `
		INSERT INTO rides (
			id, customer_id,
			pickup_address, pickup_latitude, pickup_longitude,
			dest_address, dest_latitude, dest_longitude,
			vehicle_type, status,
			base_fare, distance_fare, time_fare, surge_multiplier, total_fare,
			distance_km, estimated_duration,
			otp, payment_method, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);`

	_, err := TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.CustomerID,
		ride.Pickup.Address, ride.Pickup.Latitude, ride.Pickup.Longitude,
		ride.Destination.Address, ride.Destination.Latitude, ride.Destination.Longitude,
		ride.VehicleType, ride.Status,
		ride.Fare.BaseFare, ride.Fare.DistanceFare, ride.Fare.TimeFare, ride.Fare.SurgeMultiplier, ride.Fare.TotalFare,
		ride.DistanceKm, ride.EstimatedDurationMin,
		ride.OTP, ride.PaymentMethod, ride.PaymentStatus, ride.CreatedAt,
	)
	if err != nil {
		return dbError(ctx, op, err)
	}
	return nil
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	const op = "RideRepo.Get"
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, dbError(ctx, op, err)
	}
	return ride, nil
}

// Accept is the single conditional write that decides which driver wins a ride.
func (r *RideRepo) Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	const op = "RideRepo.Accept"
	query := `
		UPDATE rides
		SET driver_id = $2, status = 'accepted', accepted_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'requested' AND driver_id IS NULL
		RETURNING ` + rideColumns + `;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, rideID, driverID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideUnavailable
		}
		return nil, dbError(ctx, op, err)
	}
	return ride, nil
}

func (r *RideRepo) UpdateStatus(ctx context.Context, ride *models.Ride, expected types.RideStatus) error {
	const op = "RideRepo.UpdateStatus"
	query := `
		UPDATE rides
		SET status = $3,
			ride_started_at = $4,
			ride_completed_at = $5,
			actual_duration = $6,
			payment_status = $7,
			cancelled_at = $8,
			cancelled_by = $9,
			cancellation_reason = $10,
			updated_at = now()
		WHERE id = $1 AND status = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, expected,
		ride.Status,
		ride.RideStartedAt,
		ride.RideCompletedAt,
		ride.ActualDurationMin,
		ride.PaymentStatus,
		ride.CancelledAt,
		ride.CancelledBy,
		ride.CancellationReason,
	)
	if err != nil {
		return dbError(ctx, op, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// distinguish a missing ride from one whose status moved underneath
	var exists bool
	if err := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1);`, ride.ID).Scan(&exists); err != nil {
		return dbError(ctx, op, err)
	}
	if !exists {
		return types.ErrRideNotFound
	}
	return fmt.Errorf("%s: %w", op, types.ErrInvalidTransition)
}

// ListRequested prefilters by box. Exact distance filtering happens in the caller.
func (r *RideRepo) ListRequested(ctx context.Context, vt types.VehicleType, box geo.Box) ([]*models.Ride, error) {
	const op = "RideRepo.ListRequested"
	query := `SELECT ` + rideColumns + `
		FROM rides
		WHERE status = 'requested' AND driver_id IS NULL AND vehicle_type = $1
			AND pickup_latitude BETWEEN $2 AND $3
			AND pickup_longitude BETWEEN $4 AND $5
		ORDER BY created_at;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, vt, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
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

// UpdateLatestLocation moves the cached position forward only. Returns false when
// loc is older than the stored one or the ride is not active.
func (r *RideRepo) UpdateLatestLocation(ctx context.Context, loc models.DriverLocation) (bool, error) {
	const op = "RideRepo.UpdateLatestLocation"
	query := `
		UPDATE rides
		SET latest_latitude = $2,
			latest_longitude = $3,
			latest_heading = $4,
			latest_speed = $5,
			latest_location_at = $6
		WHERE id = $1
			AND status IN ('accepted', 'picked_up', 'in_progress')
			AND (latest_location_at IS NULL OR latest_location_at <= $6);`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		loc.RideID,
		loc.Coordinate.Latitude,
		loc.Coordinate.Longitude,
		loc.Heading,
		loc.Speed,
		loc.RecordedAt,
	)
	if err != nil {
		return false, dbError(ctx, op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePayment records change only if payment_status is still expected.
func (r *RideRepo) UpdatePayment(ctx context.Context, rideID uuid.UUID, change models.PaymentChange, expected types.PaymentStatus) (bool, error) {
	const op = "RideRepo.UpdatePayment"
	query := `
		UPDATE rides
		SET payment_status = $3,
			payment_method = COALESCE(NULLIF($4, ''), payment_method),
			transaction_id = COALESCE($5, transaction_id),
			updated_at = now()
		WHERE id = $1 AND payment_status = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, rideID, expected, change.Status, string(change.Method), change.TransactionID)
	if err != nil {
		return false, dbError(ctx, op, err)
	}
	return tag.RowsAffected() == 1, nil
}
