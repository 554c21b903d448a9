package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/hasher"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	SettlementExchange   = "settlement"
	QueueSettlementRetry = "settlement_retry"
	KeySettlementRetry   = "settlement.retry"
)

type SettlementBroker struct {
	publisher
}

func NewSettlementBroker(client *rabbit.RabbitMQ, service string, l logger.Logger) (*SettlementBroker, error) {
	err := client.Declare(func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(SettlementExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return err
		}
		if _, err := ch.QueueDeclare(QueueSettlementRetry, true, false, false, false, nil); err != nil {
			return err
		}
		return ch.QueueBind(QueueSettlementRetry, KeySettlementRetry, SettlementExchange, false, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", SettlementExchange, err)
	}

	return &SettlementBroker{
		publisher: publisher{client: client, service: service, l: l},
	}, nil
}

// RetryMessageID identifies one attempt for one ride, so duplicate publishes can be told apart.
func RetryMessageID(msg models.SettlementRetryMessage) string {
	return hasher.Key(msg.RideID.String(), strconv.Itoa(msg.Attempt))
}

func (b *SettlementBroker) PublishSettlementRetry(ctx context.Context, msg models.SettlementRetryMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_settlement_retry")
	ctx = wrap.WithRideID(ctx, msg.RideID.String())
	return b.publishJSON(ctx, SettlementExchange, KeySettlementRetry, RetryMessageID(msg), msg)
}

type SettlementRetryHandler func(ctx context.Context, msg models.SettlementRetryMessage) error

// ConsumeSettlementRetry blocks until ctx is done.
func (b *SettlementBroker) ConsumeSettlementRetry(ctx context.Context, handler SettlementRetryHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_settlement_retry")

	declare := func(ch *amqp.Channel) (string, error) {
		return QueueSettlementRetry, nil
	}

	return b.consume(ctx, declare, func(ctx context.Context, d amqp.Delivery) error {
		var msg models.SettlementRetryMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal settlement retry: %w", err)
		}
		ctx = wrap.WithRideID(ctx, msg.RideID.String())
		return handler(ctx, msg)
	})
}
