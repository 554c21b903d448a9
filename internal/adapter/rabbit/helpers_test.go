package rabbit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"database", fmt.Errorf("repo: %w", types.ErrDatabaseFailed), true},
		{"publish", fmt.Errorf("%w: boom", types.ErrPublishFailed), true},
		{"not found", types.ErrRideNotFound, false},
		{"decode", errors.New("failed to unmarshal"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRecoverableError(tt.err); got != tt.want {
				t.Fatalf("isRecoverableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("want success on 2nd call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	err = retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("want 3 failed calls, got err=%v calls=%d", err, calls)
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("down")
	})
	if calls != 1 || !errors.Is(err, context.Canceled) {
		t.Fatalf("want a single call and context.Canceled, got calls=%d err=%v", calls, err)
	}
}

func TestRideEventKey(t *testing.T) {
	e := models.RealtimeEvent{Type: types.EventDriverLocation}
	if got := RideEventKey(e); got != "ride.event.driver_location" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRetryMessageID(t *testing.T) {
	id := uuid.New()
	a := RetryMessageID(models.SettlementRetryMessage{RideID: id, Attempt: 1})
	b := RetryMessageID(models.SettlementRetryMessage{RideID: id, Attempt: 1, Reason: "other"})
	c := RetryMessageID(models.SettlementRetryMessage{RideID: id, Attempt: 2})
	if a != b {
		t.Fatalf("message id must depend only on ride and attempt")
	}
	if a == c {
		t.Fatalf("attempts must get distinct message ids")
	}
}
