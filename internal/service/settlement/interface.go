package settlement

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*=====================Ride Repository============================*/

type RideRepo interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// UpdatePayment records change only if the stored payment status is still expected.
	UpdatePayment(ctx context.Context, rideID uuid.UUID, change models.PaymentChange, expected types.PaymentStatus) (bool, error)
}

/*====================Settlement Repository=======================*/

// Repo writes settlement records. Both inserts are no-ops reporting false when
// a record for the ride already exists.
type Repo interface {
	InsertTripHistory(ctx context.Context, rec *models.TripHistoryRecord) (bool, error)
	InsertEarnings(ctx context.Context, rec *models.EarningsRecord) (bool, error)
	GetEarnings(ctx context.Context, rideID uuid.UUID) (*models.EarningsRecord, error)
	// ListUnsettled returns completed and paid rides without an earnings record.
	ListUnsettled(ctx context.Context, limit int) ([]*models.Ride, error)
}

/*========================Publisher===============================*/

type RetryPublisher interface {
	PublishSettlementRetry(ctx context.Context, msg models.SettlementRetryMessage) error
}
