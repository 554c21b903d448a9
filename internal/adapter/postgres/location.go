package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// LocationRepo stores the append-only driver location samples.
type LocationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepo(db *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{
		db: db,
	}
}

// Append stores sample only while its driver is assigned to an active ride.
// The ride row is share-locked, so a concurrent cancel or completion either
// waits for the insert or makes it fail with ErrInactiveRide.
func (r *LocationRepo) Append(ctx context.Context, sample *models.LocationSample) error {
	const op = "LocationRepo.Append"
	query := `
		INSERT INTO location_samples (ride_id, driver_id, latitude, longitude, heading, speed, recorded_at)
		SELECT r.id, $2::uuid, $3::double precision, $4::double precision,
			$5::double precision, $6::double precision, $7::timestamptz
		FROM (
			SELECT id FROM rides
			WHERE id = $1
				AND driver_id = $2
				AND status IN ('accepted', 'picked_up', 'in_progress')
			FOR SHARE
		) r
		RETURNING id;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		sample.RideID, sample.DriverID,
		sample.Coordinate.Latitude, sample.Coordinate.Longitude,
		sample.Heading, sample.Speed, sample.RecordedAt,
	).Scan(&sample.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, types.ErrInactiveRide)
		}
		return dbError(ctx, op, err)
	}
	return nil
}

func (r *LocationRepo) Latest(ctx context.Context, rideID uuid.UUID) (*models.LocationSample, error) {
	const op = "LocationRepo.Latest"
	query := `
		SELECT id, ride_id, driver_id, latitude, longitude, heading, speed, recorded_at
		FROM location_samples
		WHERE ride_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1;`

	sample, err := scanSample(TxorDB(ctx, r.db).QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNoLocationData
		}
		return nil, dbError(ctx, op, err)
	}
	return sample, nil
}

// History returns up to limit samples, newest first.
func (r *LocationRepo) History(ctx context.Context, rideID uuid.UUID, limit int) ([]models.LocationSample, error) {
	const op = "LocationRepo.History"
	query := `
		SELECT id, ride_id, driver_id, latitude, longitude, heading, speed, recorded_at
		FROM location_samples
		WHERE ride_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, rideID, limit)
	if err != nil {
		return nil, dbError(ctx, op, err)
	}
	defer rows.Close()

	samples := make([]models.LocationSample, 0, limit)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, dbError(ctx, op, err)
		}
		samples = append(samples, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(ctx, op, err)
	}
	return samples, nil
}

func scanSample(row rowScanner) (*models.LocationSample, error) {
	var s models.LocationSample
	err := row.Scan(&s.ID, &s.RideID, &s.DriverID,
		&s.Coordinate.Latitude, &s.Coordinate.Longitude,
		&s.Heading, &s.Speed, &s.RecordedAt)
	if err != nil {
		return nil, err
	}
	s.RecordedAt = s.RecordedAt.UTC()
	return &s, nil
}
