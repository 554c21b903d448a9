package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

type (
	// Identifier turns a bearer token into the caller it names.
	Identifier interface {
		Identify(ctx context.Context, token string) (models.Caller, error)
	}

	Middleware struct {
		auth    Identifier
		service string
		log     logger.Logger
	}
)

func NewMiddleware(auth Identifier, service string, log logger.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		service: service,
		log:     log,
	}
}
