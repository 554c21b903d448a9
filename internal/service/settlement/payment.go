package settlement

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type Settler interface {
	Settle(ctx context.Context, ride *models.Ride) (models.SettlementResult, error)
}

// PaymentService records payment callbacks and triggers settlement on confirmed payment.
type PaymentService struct {
	rides   RideRepo
	settler Settler
	retry   RetryPublisher
	l       logger.Logger
}

func NewPaymentService(rides RideRepo, settler Settler, retry RetryPublisher, l logger.Logger) *PaymentService {
	return &PaymentService{
		rides:   rides,
		settler: settler,
		retry:   retry,
		l:       l,
	}
}

// UpdatePaymentStatus records the payment outcome for a customer's ride.
//
// A completed payment is committed before settlement runs. If settlement then
// fails the payment stays confirmed, a retry is queued and the result reports
// pending_retry. Repeated completed callbacks are idempotent.
func (p *PaymentService) UpdatePaymentStatus(ctx context.Context, rideID, customerID uuid.UUID, change models.PaymentChange) (*models.PaymentUpdate, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionUpdatePayment), rideID.String())
	ctx = wrap.WithUserID(ctx, customerID.String())

	if !change.Status.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidPaymentStatus, change.Status))
	}
	if change.Method != "" && !change.Method.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidPaymentMethod, change.Method))
	}

	// a lost conditional write means another callback raced us; re-read once and decide again
	for attempt := 0; attempt < 2; attempt++ {
		ride, err := p.rides.Get(ctx, rideID)
		if err != nil {
			return nil, wrap.Error(ctx, err)
		}
		if !ride.IsCustomer(customerID) {
			return nil, wrap.Error(ctx, types.ErrNotAuthorized)
		}

		if ride.PaymentStatus == types.PaymentCompleted {
			if change.Status != types.PaymentCompleted {
				return nil, wrap.Error(ctx, types.ErrAlreadySettled)
			}
			p.l.Debug(ctx, "payment already completed, settling idempotently")
			return &models.PaymentUpdate{Ride: ride, Settlement: p.settle(ctx, ride)}, nil
		}

		if change.Status == types.PaymentCompleted && ride.Status != types.StatusCompleted {
			return nil, wrap.Error(ctx, fmt.Errorf("%w: payment can not complete for a %s ride", types.ErrInvalidTransition, ride.Status))
		}

		if change.Method == "" {
			change.Method = ride.PaymentMethod
		}

		updated, err := p.rides.UpdatePayment(ctx, rideID, change, ride.PaymentStatus)
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("failed to update payment status: %w", err))
		}
		if !updated {
			p.l.Warn(ctx, "payment status changed concurrently", "expected", ride.PaymentStatus)
			continue
		}

		next := ride.Clone()
		next.PaymentStatus = change.Status
		next.PaymentMethod = change.Method
		if change.TransactionID != nil {
			next.TransactionID = change.TransactionID
		}

		p.l.Info(ctx, "payment status updated", "from", ride.PaymentStatus, "to", next.PaymentStatus)

		result := models.SettlementResult{Status: models.SettlementNotApplicable}
		if next.PaymentStatus == types.PaymentCompleted {
			result = p.settle(ctx, next)
		}
		return &models.PaymentUpdate{Ride: next, Settlement: result}, nil
	}

	return nil, wrap.Error(ctx, fmt.Errorf("%w: payment status keeps changing", types.ErrInvalidTransition))
}

// settle never fails the callback: a failed write is logged and queued for retry.
func (p *PaymentService) settle(ctx context.Context, ride *models.Ride) models.SettlementResult {
	result, err := p.settler.Settle(ctx, ride)
	if err == nil {
		return result
	}

	p.l.Error(wrap.ErrorCtx(ctx, err), "settlement failed after payment confirmation", err)

	msg := models.SettlementRetryMessage{RideID: ride.ID, Attempt: 1, Reason: err.Error()}
	if pubErr := p.retry.PublishSettlementRetry(ctx, msg); pubErr != nil {
		p.l.Error(wrap.WithAction(ctx, types.ActionPublishFailed), "failed to queue settlement retry, sweep will pick it up", pubErr)
	}

	return models.SettlementResult{Status: models.SettlementPendingRetry}
}
