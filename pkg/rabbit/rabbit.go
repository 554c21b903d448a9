package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const (
	heartbeat         = 10 * time.Second
	reconnectAttempts = 5
)

var ErrClosed = errors.New("rabbitmq client is closed")

type Config interface {
	GetDSN() string
}

// TopologyFunc declares exchanges, queues and bindings on a fresh channel.
// It runs after the first connect and after every reconnect.
type TopologyFunc func(ch *amqp.Channel) error

type RabbitMQ struct {
	mu       sync.RWMutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	closed   bool
	dsn      string
	topology []TopologyFunc

	log logger.Logger
}

// New connects to RabbitMQ and opens one channel.
func New(ctx context.Context, cfg Config, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		dsn: cfg.GetDSN(),
		log: log,
	}

	conn, ch, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.conn, r.channel = conn, ch
	go r.monitor(conn, ch)

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(r.dsn, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

// monitor logs the first close notification of conn or ch.
func (r *RabbitMQ) monitor(conn *amqp.Connection, ch *amqp.Channel) {
	connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClose := ch.NotifyClose(make(chan *amqp.Error, 1))

	var closeErr *amqp.Error
	select {
	case closeErr = <-connClose:
	case closeErr = <-chClose:
	}

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if closeErr != nil {
		r.log.Error(ctx, "RabbitMQ connection closed with error", closeErr)
		return
	}
	r.log.Debug(ctx, "RabbitMQ connection closed gracefully")
}

// Declare registers fn as topology and applies it on the current channel.
func (r *RabbitMQ) Declare(fn TopologyFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if err := fn(r.channel); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	r.topology = append(r.topology, fn)
	return nil
}

// Channel returns the current channel. It changes after a reconnect.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// IsConnectionClosed checks if the connection or the channel is closed.
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isClosedLocked()
}

func (r *RabbitMQ) isClosedLocked() bool {
	return r.conn == nil || r.conn.IsClosed() || r.channel == nil || r.channel.IsClosed()
}

// Close closes the channel and the connection. Further calls are no-ops.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ch, conn := r.channel, r.conn
	r.channel, r.conn = nil, nil
	r.mu.Unlock()

	r.log.Debug(ctx, "closing channel")
	if ch != nil {
		if err := closeWithCtxFunc(ctx, ch.Close); err != nil && ctx.Err() == nil && !errors.Is(err, amqp.ErrClosed) {
			r.log.Error(ctx, "error closing channel", err)
		}
	}

	r.log.Debug(ctx, "closing RabbitMQ connection")
	if conn != nil {
		if err := closeWithCtxFunc(ctx, conn.Close); err != nil && !errors.Is(err, amqp.ErrClosed) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// closeWithCtxFunc runs fn but stops waiting once ctx is done.
func closeWithCtxFunc(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconnect dials again with linear backoff and re-applies the declared topology.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.dsn == "" {
		return errors.New("dsn is empty: can't reconnect")
	}
	if !r.isClosedLocked() {
		return nil
	}

	var (
		conn *amqp.Connection
		ch   *amqp.Channel
		err  error
	)
	for i := range reconnectAttempts {
		conn, ch, err = r.dial()
		if err == nil {
			break
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}

	for _, fn := range r.topology {
		if err := fn(ch); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("redeclare topology: %w", err)
		}
	}

	r.conn, r.channel = conn, ch
	go r.monitor(conn, ch)

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
	return nil
}

// EnsureConnection reconnects when the connection is down.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if !r.IsConnectionClosed() {
		return nil
	}
	r.log.Warn(ctx, "rabbit connection closed, reconnecting...")
	return r.Reconnect(ctx)
}
