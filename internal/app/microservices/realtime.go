package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/ride-dispatch/internal/adapter/http/ws"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/internal/service/realtime"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

// RealtimeService is the websocket gateway: it authorizes ride channel
// subscribers and relays ride events from the broker to them.
type RealtimeService struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	hub        *ws.Hub
	events     *rabbitadapter.EventBroker
	realtime   *realtime.Service
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewRealtime(ctx context.Context, cfg config.Config, log logger.Logger) (*RealtimeService, error) {
	s := &RealtimeService{cfg: cfg, log: log}

	var err error
	s.postgresDB, err = postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	s.rabbitMQ, err = rabbit.New(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Error(ctx, "Failed to setup rabbitmq", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	s.events, err = rabbitadapter.NewEventBroker(s.rabbitMQ, string(types.RealtimeService), log)
	if err != nil {
		log.Error(ctx, "Failed to declare ride events exchange", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	s.hub = ws.NewHub(log)
	s.realtime = realtime.New(repo.NewRideRepo(s.postgresDB.Pool), s.hub, log)

	checks := map[string]handler.HealthCheck{
		"postgres": s.postgresDB.Pool.Ping,
		"rabbitmq": rabbitCheck(s.rabbitMQ),
	}
	routes := server.Handlers{
		Realtime: wshandler.NewRideWsHandler(s.realtime, s.hub, string(types.RealtimeService), log),
		Checks:   checks,
	}

	s.httpServer, err = server.New(cfg, auth.NewTokenService(cfg.Auth.JWTSecret), routes, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	return s, nil
}

func (s *RealtimeService) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	go func() {
		if err := s.events.ConsumeRideEvents(consumeCtx, s.realtime.Dispatch); err != nil {
			errCh <- err
		}
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		stopConsume()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "realtime service closed")
	}()

	s.log.Info(ctx, "Realtime service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case <-ctx.Done():
		s.log.Info(ctx, "shutting down", "cause", context.Cause(ctx).Error())
		return nil
	}
}

func (s *RealtimeService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	// Hijacked websocket connections are not closed by the http server.
	if s.hub != nil {
		s.hub.Close()
	}

	if s.rabbitMQ != nil {
		if err := s.rabbitMQ.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq connection", "error", err.Error())
		}
	}

	s.postgresDB.Close()
}
