package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		RideID    string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func fromCtx(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// WithLogCtx merges newLc into the LogCtx already stored in ctx. Empty fields keep the old value.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc := fromCtx(ctx)
	if newLc.Action != "" {
		lc.Action = newLc.Action
	}
	if newLc.UserID != "" {
		lc.UserID = newLc.UserID
	}
	if newLc.RequestID != "" {
		lc.RequestID = newLc.RequestID
	}
	if newLc.RideID != "" {
		lc.RideID = newLc.RideID
	}
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithUserID adds or updates the UserID in the LogCtx within the context
func WithUserID(ctx context.Context, userID string) context.Context {
	lc := fromCtx(ctx)
	lc.UserID = userID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := fromCtx(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRideID adds or updates the RideID in the LogCtx within the context
func WithRideID(ctx context.Context, rideID string) context.Context {
	lc := fromCtx(ctx)
	lc.RideID = rideID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	lc := fromCtx(ctx)
	lc.Action = action
	return context.WithValue(ctx, LogCtxKey, lc)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	return fromCtx(ctx).RequestID
}
