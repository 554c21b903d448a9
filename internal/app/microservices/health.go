package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

func rabbitCheck(client *rabbit.RabbitMQ) handler.HealthCheck {
	return func(context.Context) error {
		if client.IsConnectionClosed() {
			return rabbit.ErrClosed
		}
		return nil
	}
}
