package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	cache "github.com/Temutjin2k/ride-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/internal/service/pricing"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/settlement"
	"github.com/Temutjin2k/ride-dispatch/internal/service/tracking"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/ride-dispatch/pkg/redis"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

type RideService struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	redis      *redis.Client
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewRide(ctx context.Context, cfg config.Config, log logger.Logger) (*RideService, error) {
	s := &RideService{cfg: cfg, log: log}

	surge, err := cfg.Pricing.SurgeRules()
	if err != nil {
		log.Error(ctx, "Invalid pricing configuration", err)
		return nil, err
	}

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

	events, err := rabbitadapter.NewEventBroker(s.rabbitMQ, string(types.RideService), log)
	if err != nil {
		log.Error(ctx, "Failed to declare ride events exchange", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}
	retries, err := rabbitadapter.NewSettlementBroker(s.rabbitMQ, string(types.RideService), log)
	if err != nil {
		log.Error(ctx, "Failed to declare settlement exchange", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	// Without Redis the tracker reads straight from postgres.
	var locationCache tracking.LocationCache
	s.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn(ctx, "redis unavailable, location cache disabled", "error", err.Error())
	} else {
		locationCache = cache.NewLocationCache(s.redis.Client, cfg.Redis.LocationTTL)
	}

	pool := s.postgresDB.Pool
	trManager := trm.New(pool)
	rideRepo := repo.NewRideRepo(pool)
	locationRepo := repo.NewLocationRepo(pool)
	settlementRepo := repo.NewSettlementRepo(pool)

	notifier := notify.New(events, log)
	pricer := pricing.New(surge)

	rideService := ride.NewRideService(rideRepo, pricer, notifier, log)
	dispatchService := dispatch.New(rideRepo, notifier, dispatch.Config{
		DefaultRadiusKm: cfg.Dispatch.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Dispatch.MaxRadiusKm,
	}, log)
	trackingService := tracking.New(rideRepo, locationRepo, locationCache, notifier, trManager, log)
	engine := settlement.NewEngine(settlementRepo, trManager, cfg.Settlement.CommissionRate, log)
	paymentService := settlement.NewPaymentService(rideRepo, engine, retries, log)

	routes := server.Handlers{
		Ride:   handler.NewRide(rideService, pricer, dispatchService, trackingService, paymentService, log),
		Checks: s.healthChecks(),
	}

	s.httpServer, err = server.New(cfg, auth.NewTokenService(cfg.Auth.JWTSecret), routes, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	return s, nil
}

func (s *RideService) healthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"postgres": s.postgresDB.Pool.Ping,
		"rabbitmq": rabbitCheck(s.rabbitMQ),
	}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return s.redis.Client.Ping(ctx).Err() }
	}
	return checks
}

func (s *RideService) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	s.httpServer.Run(ctx, errCh)
	defer func() {
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "ride service closed")
	}()

	s.log.Info(ctx, "Ride service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case <-ctx.Done():
		s.log.Info(ctx, "shutting down", "cause", context.Cause(ctx).Error())
		return nil
	}
}

func (s *RideService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.rabbitMQ != nil {
		if err := s.rabbitMQ.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq connection", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	s.postgresDB.Close()
}
