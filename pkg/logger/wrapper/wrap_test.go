package wrap

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

var errBase = errors.New("base")

func TestError_NilPassesThrough(t *testing.T) {
	if Error(context.Background(), nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestError_KeepsChain(t *testing.T) {
	ctx := WithRideID(context.Background(), "r-1")
	err := Error(ctx, fmt.Errorf("op: %w", errBase))

	if !errors.Is(err, errBase) {
		t.Fatalf("wrapped error must match base sentinel")
	}
	if err.Error() != "op: base" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestError_RewrapKeepsInnermostFields(t *testing.T) {
	inner := WithAction(WithRideID(context.Background(), "r-1"), "record_location")
	err := Error(inner, errBase)

	outer := WithAction(WithRequestID(context.Background(), "req-9"), "http_handler")
	err = Error(outer, fmt.Errorf("handler: %w", err))

	lc := fromCtx(ErrorCtx(context.Background(), err))
	if lc.Action != "record_location" || lc.RideID != "r-1" || lc.RequestID != "req-9" {
		t.Fatalf("unexpected merged log ctx: %+v", lc)
	}
	if err.Error() != "handler: base" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWithLogCtx_Merges(t *testing.T) {
	ctx := WithUserID(context.Background(), "u-1")
	ctx = WithLogCtx(ctx, LogCtx{Action: "cancel_ride"})

	lc := fromCtx(ctx)
	if lc.UserID != "u-1" || lc.Action != "cancel_ride" {
		t.Fatalf("unexpected log ctx: %+v", lc)
	}
	if RequestID(ctx) != "" {
		t.Fatalf("request id must be empty")
	}
}
