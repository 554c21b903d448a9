package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	publishAttempts = 3
	publishSpacing  = 500 * time.Millisecond
	resubscribeWait = 2 * time.Second
)

// isRecoverableError returns true if the provided error must be requeued
func isRecoverableError(err error) bool {
	return oneOf(err, types.ErrDatabaseFailed, types.ErrPublishFailed)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// retry calls fn up to n times, sleeping between failures. It stops early when ctx is done.
func retry(ctx context.Context, n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil {
			return nil
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
	return err
}

// publisher is the publishing half shared by the brokers.
type publisher struct {
	client  *rabbit.RabbitMQ
	service string
	l       logger.Logger
}

func (p publisher) publishJSON(ctx context.Context, exchange, key, messageID string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	err = retry(ctx, publishAttempts, publishSpacing, func() error {
		if err := p.client.EnsureConnection(ctx); err != nil {
			return err
		}
		return p.client.Channel().PublishWithContext(
			ctx,
			exchange, // exchange
			key,      // routing key
			false,    // mandatory
			false,    // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    messageID,
				Body:         body,
				Timestamp:    time.Now().UTC(),
			},
		)
	})
	metrics.RecordRabbitMQPublish(p.service, exchange, err)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionPublishFailed)
		return wrap.Error(ctx, fmt.Errorf("%w: %s/%s: %w", types.ErrPublishFailed, exchange, key, err))
	}
	return nil
}

// queueFunc declares the queue to consume from on the current channel and returns its name.
type queueFunc func(ch *amqp.Channel) (string, error)

type deliveryHandler func(ctx context.Context, d amqp.Delivery) error

// consume keeps a consumer alive until ctx is done. Each delivery is acked on success,
// requeued on recoverable errors and dropped otherwise.
func (p publisher) consume(ctx context.Context, declare queueFunc, handle deliveryHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := p.client.EnsureConnection(ctx); err != nil {
			p.l.Error(ctx, "ensure connection failed", err)
			if !sleepCtx(ctx, resubscribeWait) {
				return nil
			}
			continue
		}

		ch := p.client.Channel()
		queue, err := declare(ch)
		if err != nil {
			p.l.Error(ctx, "declare queue failed", err)
			if !sleepCtx(ctx, resubscribeWait) {
				return nil
			}
			continue
		}

		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			p.l.Error(ctx, "consume failed", err, "queue", queue)
			if !sleepCtx(ctx, resubscribeWait) {
				return nil
			}
			continue
		}

		p.l.Info(ctx, "start consuming", "queue", queue)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				p.l.Info(ctx, "consumer shutting down", "queue", queue)
				return nil

			case d, ok := <-msgs:
				if !ok {
					p.l.Warn(ctx, "message channel closed, reconnecting...", "queue", queue)
					break consumeLoop
				}

				dctx := wrap.WithRequestID(ctx, d.MessageId)
				err := handle(dctx, d)
				metrics.RecordRabbitMQConsume(p.service, queue, err)

				switch {
				case err == nil:
					_ = d.Ack(false)
				case isRecoverableError(err):
					p.l.Error(wrap.ErrorCtx(dctx, err), "failed to handle message, requeueing", err)
					_ = d.Nack(false, true)
				default:
					p.l.Error(wrap.ErrorCtx(dctx, err), "failed to handle message, dropping", err)
					_ = d.Nack(false, false)
				}
			}
		}

		if !sleepCtx(ctx, resubscribeWait) {
			return nil
		}
	}
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
