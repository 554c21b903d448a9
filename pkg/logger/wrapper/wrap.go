package wrap

import (
	"context"
	"errors"
)

// Error attaches the LogCtx of ctx to err. An error that already carries a LogCtx
// keeps its original one merged with the fields of ctx that it was missing.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		merged := fromCtx(ctx)
		if e.logCtx.Action != "" {
			merged.Action = e.logCtx.Action
		}
		if e.logCtx.UserID != "" {
			merged.UserID = e.logCtx.UserID
		}
		if e.logCtx.RequestID != "" {
			merged.RequestID = e.logCtx.RequestID
		}
		if e.logCtx.RideID != "" {
			merged.RideID = e.logCtx.RideID
		}
		return &errorWithLogCtx{err: err, logCtx: merged}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}
