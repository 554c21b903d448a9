package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx wraps an error together with the LogCtx of the place it was raised
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// ErrorCtx returns ctx enriched with the LogCtx carried by err, if any.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
