package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/gorilla/websocket"
)

type fakeSub struct {
	id     uuid.UUID
	mu     sync.Mutex
	got    []any
	err    error
	closed bool
}

func newFakeSub() *fakeSub {
	return &fakeSub{id: uuid.New()}
}

func (f *fakeSub) ID() uuid.UUID { return f.id }

func (f *fakeSub) Send(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msg)
	return nil
}

func (f *fakeSub) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSub) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSub) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestHub_FanOutPerChannel(t *testing.T) {
	h := NewHub(logger.Nop())
	rideA, rideB := uuid.New(), uuid.New()

	a1, a2, b1 := newFakeSub(), newFakeSub(), newFakeSub()
	for _, s := range []struct {
		key uuid.UUID
		sub *fakeSub
	}{{rideA, a1}, {rideA, a2}, {rideB, b1}} {
		if err := h.Subscribe(s.key, s.sub); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	if n := h.Publish(context.Background(), rideA, "hello"); n != 2 {
		t.Fatalf("want 2 deliveries, got %d", n)
	}
	if a1.received() != 1 || a2.received() != 1 || b1.received() != 0 {
		t.Fatalf("message leaked across channels")
	}

	h.Unsubscribe(rideA, a1)
	if n := h.Publish(context.Background(), rideA, "again"); n != 1 {
		t.Fatalf("want 1 delivery after unsubscribe, got %d", n)
	}
	if h.Count(rideA) != 1 {
		t.Fatalf("want 1 subscriber, got %d", h.Count(rideA))
	}
}

func TestHub_DropsBrokenSubscriber(t *testing.T) {
	h := NewHub(logger.Nop())
	ride := uuid.New()
	good, broken := newFakeSub(), newFakeSub()
	broken.err = errors.New("write: broken pipe")

	_ = h.Subscribe(ride, good)
	_ = h.Subscribe(ride, broken)

	if n := h.Publish(context.Background(), ride, "x"); n != 1 {
		t.Fatalf("want 1 delivery, got %d", n)
	}
	if h.Count(ride) != 1 || !broken.closed {
		t.Fatalf("broken subscriber must be dropped and closed")
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := NewHub(logger.Nop())
	if n := h.Publish(context.Background(), uuid.New(), "x"); n != 0 {
		t.Fatalf("want 0 deliveries, got %d", n)
	}
}

func TestHub_CloseRefusesNewSubscribers(t *testing.T) {
	h := NewHub(logger.Nop())
	sub := newFakeSub()
	_ = h.Subscribe(uuid.New(), sub)

	h.Close()
	if !sub.closed {
		t.Fatalf("subscriber must be closed with the hub")
	}
	if err := h.Subscribe(uuid.New(), newFakeSub()); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("want ErrHubClosed, got %v", err)
	}
	if err := h.Subscribe(uuid.New(), nil); !errors.Is(err, ErrEmptyConn) {
		t.Fatalf("want ErrEmptyConn, got %v", err)
	}
}

func TestHub_KeepAliveDropsOnPingFailure(t *testing.T) {
	h := NewHub(logger.Nop())
	ride := uuid.New()
	sub := newFakeSub()
	_ = h.Subscribe(ride, sub)

	sub.mu.Lock()
	sub.err = errors.New("ping timeout")
	sub.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.KeepAlive(ctx, ride, sub, 5*time.Millisecond); err == nil {
		t.Fatalf("keep-alive must report the ping failure")
	}
	if h.Count(ride) != 0 {
		t.Fatalf("subscriber must be dropped")
	}
	if err := h.KeepAlive(ctx, ride, sub, 0); !errors.Is(err, ErrBadInterval) {
		t.Fatalf("want ErrBadInterval, got %v", err)
	}
}

func TestConn_RoundTrip(t *testing.T) {
	h := NewHub(logger.Nop())
	ride := uuid.New()
	subscribed := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn := NewConn(context.Background(), raw)
		if err := h.Subscribe(ride, conn); err != nil {
			t.Errorf("subscribe: %v", err)
			return
		}
		close(subscribed)
		_ = conn.ReadLoop()
		h.Unsubscribe(ride, conn)
		_ = conn.Close()
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	select {
	case <-subscribed:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never subscribed")
	}

	if n := h.Publish(context.Background(), ride, map[string]string{"type": "driver_location"}); n != 1 {
		t.Fatalf("want 1 delivery, got %d", n)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "driver_location" {
		t.Fatalf("unexpected message: %v", got)
	}
}
