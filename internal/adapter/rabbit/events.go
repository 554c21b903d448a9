package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	RideEventsExchange = "ride_events"
	rideEventsBinding  = "ride.event.#"
)

// RideEventKey is the routing key of a realtime event, e.g. "ride.event.driver_location".
func RideEventKey(e models.RealtimeEvent) string {
	return "ride.event." + e.Type.String()
}

// EventBroker carries realtime ride events from the ride service to every gateway instance.
type EventBroker struct {
	publisher
}

func NewEventBroker(client *rabbit.RabbitMQ, service string, l logger.Logger) (*EventBroker, error) {
	err := client.Declare(func(ch *amqp.Channel) error {
		return ch.ExchangeDeclare(RideEventsExchange, amqp.ExchangeTopic, true, false, false, false, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", RideEventsExchange, err)
	}

	return &EventBroker{
		publisher: publisher{client: client, service: service, l: l},
	}, nil
}

func (b *EventBroker) PublishRideEvent(ctx context.Context, event models.RealtimeEvent) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_ride_event")
	return b.publishJSON(ctx, RideEventsExchange, RideEventKey(event), "", event)
}

type RideEventHandler func(ctx context.Context, event models.RealtimeEvent) error

// ConsumeRideEvents reads every ride event through a private queue, so each
// gateway instance sees all events. Blocks until ctx is done.
func (b *EventBroker) ConsumeRideEvents(ctx context.Context, handler RideEventHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_ride_events")

	declare := func(ch *amqp.Channel) (string, error) {
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return "", err
		}
		if err := ch.QueueBind(q.Name, rideEventsBinding, RideEventsExchange, false, nil); err != nil {
			return "", err
		}
		return q.Name, nil
	}

	return b.consume(ctx, declare, func(ctx context.Context, d amqp.Delivery) error {
		var event models.RealtimeEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			return fmt.Errorf("failed to unmarshal ride event: %w", err)
		}
		ctx = wrap.WithRideID(ctx, event.RideID.String())
		return handler(ctx, event)
	})
}
