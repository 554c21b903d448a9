package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	ErrEmptyConn   = errors.New("connection is empty")
	ErrHubClosed   = errors.New("hub is closed")
	ErrBadInterval = errors.New("keep-alive needs a positive interval")
)

// Subscriber is anything the hub can fan messages out to.
type Subscriber interface {
	ID() uuid.UUID
	Send(msg any) error
	Ping() error
	Close() error
}

// Hub is a publish/subscribe registry keyed by channel id (a ride id).
// Every channel may have many subscribers. A subscriber whose write fails is dropped.
type Hub struct {
	channels map[uuid.UUID]map[uuid.UUID]Subscriber
	closed   bool
	l        logger.Logger
	mu       sync.RWMutex
}

func NewHub(l logger.Logger) *Hub {
	return &Hub{
		channels: make(map[uuid.UUID]map[uuid.UUID]Subscriber),
		l:        l,
	}
}

// Subscribe adds sub to the channel key.
func (h *Hub) Subscribe(key uuid.UUID, sub Subscriber) error {
	if sub == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	subs, ok := h.channels[key]
	if !ok {
		subs = make(map[uuid.UUID]Subscriber)
		h.channels[key] = subs
	}
	subs[sub.ID()] = sub

	return nil
}

// Unsubscribe removes sub from the channel key. The connection is not closed.
func (h *Hub) Unsubscribe(key uuid.UUID, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.remove(key, sub.ID())
}

func (h *Hub) remove(key, id uuid.UUID) bool {
	subs, ok := h.channels[key]
	if !ok {
		return false
	}
	if _, ok := subs[id]; !ok {
		return false
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.channels, key)
	}
	return true
}

// Publish sends msg to every subscriber of key and returns how many received it.
func (h *Hub) Publish(ctx context.Context, key uuid.UUID, msg any) int {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.channels[key]))
	for _, sub := range h.channels[key] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if err := sub.Send(msg); err != nil {
			h.drop(ctx, key, sub, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) drop(ctx context.Context, key uuid.UUID, sub Subscriber, cause error) {
	h.mu.Lock()
	removed := h.remove(key, sub.ID())
	h.mu.Unlock()

	if !removed {
		return
	}
	h.l.Warn(wrap.WithAction(ctx, "ws_subscriber_dropped"), "dropping websocket subscriber",
		"channel", key.String(),
		"subscriber", sub.ID().String(),
		"error", cause.Error(),
	)
	_ = sub.Close()
}

// KeepAlive pings sub every interval until ctx is done or a ping fails,
// in which case the subscriber is dropped.
func (h *Hub) KeepAlive(ctx context.Context, key uuid.UUID, sub Subscriber, interval time.Duration) error {
	if interval <= 0 {
		return ErrBadInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sub.Ping(); err != nil {
				h.drop(ctx, key, sub, err)
				return err
			}
		}
	}
}

// Count returns the number of subscribers of key.
func (h *Hub) Count(key uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels[key])
}

// Close closes every subscriber and refuses new ones.
func (h *Hub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	h.closed = true
	var subs []Subscriber
	for _, channel := range h.channels {
		for _, sub := range channel {
			subs = append(subs, sub)
		}
	}
	h.channels = make(map[uuid.UUID]map[uuid.UUID]Subscriber)
	h.mu.Unlock()

	// close outside the lock
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			h.l.Debug(ctx, "failed to close subscriber", "subscriber", sub.ID().String(), "error", err.Error())
		}
	}

	h.l.Info(ctx, "all websocket connections closed gracefully", "count", len(subs))
}
