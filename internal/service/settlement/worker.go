package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const (
	MaxRetryAttempts = 10
	sweepBatchSize   = 100
	maxRetryBackoff  = 30 * time.Second
)

// Worker settles rides whose settlement failed after payment confirmation,
// from retry messages and from a periodic sweep of the store.
type Worker struct {
	rides   RideRepo
	repo    Repo
	settler Settler
	retry   RetryPublisher
	l       logger.Logger

	backoff func(attempt int) time.Duration
}

func NewWorker(rides RideRepo, repo Repo, settler Settler, retry RetryPublisher, l logger.Logger) *Worker {
	return &Worker{
		rides:   rides,
		repo:    repo,
		settler: settler,
		retry:   retry,
		l:       l,
		backoff: func(attempt int) time.Duration {
			return min(time.Duration(attempt)*time.Second, maxRetryBackoff)
		},
	}
}

// Retry handles one retry message. A failed attempt is queued again with the
// next attempt number; after MaxRetryAttempts the message is dropped and only
// the sweep can settle the ride.
func (w *Worker) Retry(ctx context.Context, msg models.SettlementRetryMessage) error {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionSettlementRetry), msg.RideID.String())

	ride, err := w.rides.Get(ctx, msg.RideID)
	if err != nil {
		if errors.Is(err, types.ErrRideNotFound) {
			w.l.Warn(ctx, "dropping settlement retry for unknown ride")
			return nil
		}
		return wrap.Error(ctx, err)
	}

	result, err := w.settler.Settle(ctx, ride)
	if err == nil {
		w.l.Info(ctx, "settlement retry succeeded", "attempt", msg.Attempt, "status", result.Status)
		return nil
	}
	if errors.Is(err, types.ErrInvalidTransition) || errors.Is(err, types.ErrMissingField) {
		w.l.Warn(ctx, "dropping settlement retry for unsettleable ride", "error", err.Error())
		return nil
	}

	if msg.Attempt >= MaxRetryAttempts {
		w.l.Error(wrap.ErrorCtx(ctx, err), "settlement retries exhausted, leaving ride to the sweep", err, "attempt", msg.Attempt)
		return nil
	}

	select {
	case <-ctx.Done():
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrDatabaseFailed, ctx.Err()))
	case <-time.After(w.backoff(msg.Attempt)):
	}

	next := models.SettlementRetryMessage{RideID: msg.RideID, Attempt: msg.Attempt + 1, Reason: err.Error()}
	if pubErr := w.retry.PublishSettlementRetry(ctx, next); pubErr != nil {
		// requeue the current message instead
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrDatabaseFailed, pubErr))
	}

	w.l.Warn(ctx, "settlement retry failed, queued next attempt", "attempt", msg.Attempt, "error", err.Error())
	return nil
}

// Sweep settles paid rides that have no earnings record. Returns how many were settled.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	ctx = wrap.WithAction(ctx, types.ActionSettlementSweep)

	rides, err := w.repo.ListUnsettled(ctx, sweepBatchSize)
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("failed to list unsettled rides: %w", err))
	}

	settled := 0
	for _, ride := range rides {
		if ctx.Err() != nil {
			break
		}
		result, err := w.settler.Settle(ctx, ride)
		if err != nil {
			w.l.Error(wrap.ErrorCtx(ctx, err), "sweep could not settle ride", err, "ride_id", ride.ID)
			continue
		}
		if result.Status == models.SettlementSettled {
			settled++
		}
	}

	if len(rides) > 0 {
		w.l.Info(ctx, "settlement sweep finished", "candidates", len(rides), "settled", settled)
	}
	return settled, nil
}

// Run sweeps immediately and then every interval until ctx is done.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil {
			w.l.Error(wrap.ErrorCtx(ctx, err), "settlement sweep failed", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
