package models

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// Caller is the already-identified actor of a request.
type Caller struct {
	ID   uuid.UUID
	Role types.UserRole
}

func (c Caller) IsAnonymous() bool {
	return c.ID.IsZero()
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller, or an anonymous one when none is set.
func CallerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}
