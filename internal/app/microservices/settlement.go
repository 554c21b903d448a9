package microservices

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/internal/service/settlement"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

// SettlementWorker consumes settlement retries and sweeps paid rides that were never settled.
type SettlementWorker struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	broker     *rabbitadapter.SettlementBroker
	worker     *settlement.Worker
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewSettlementWorker(ctx context.Context, cfg config.Config, log logger.Logger) (*SettlementWorker, error) {
	s := &SettlementWorker{cfg: cfg, log: log}

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

	s.broker, err = rabbitadapter.NewSettlementBroker(s.rabbitMQ, string(types.SettlementWorker), log)
	if err != nil {
		log.Error(ctx, "Failed to declare settlement exchange", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	pool := s.postgresDB.Pool
	rideRepo := repo.NewRideRepo(pool)
	settlementRepo := repo.NewSettlementRepo(pool)
	engine := settlement.NewEngine(settlementRepo, trm.New(pool), cfg.Settlement.CommissionRate, log)
	s.worker = settlement.NewWorker(rideRepo, settlementRepo, engine, s.broker, log)

	checks := map[string]handler.HealthCheck{
		"postgres": pool.Ping,
		"rabbitmq": rabbitCheck(s.rabbitMQ),
	}
	s.httpServer, err = server.New(cfg, auth.NewTokenService(cfg.Auth.JWTSecret), server.Handlers{Checks: checks}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(context.WithoutCancel(ctx))
		return nil, err
	}

	return s, nil
}

func (s *SettlementWorker) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	workCtx, stopWork := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(workCtx)
	g.Go(func() error {
		return s.broker.ConsumeSettlementRetry(gctx, s.worker.Retry)
	})
	g.Go(func() error {
		s.worker.Run(gctx, s.cfg.Settlement.SweepInterval)
		return nil
	})
	go func() {
		if err := g.Wait(); err != nil {
			errCh <- err
		}
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		stopWork()
		_ = g.Wait()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "settlement worker closed")
	}()

	s.log.Info(ctx, "Settlement worker has been started", "sweep_interval", s.cfg.Settlement.SweepInterval.String())

	select {
	case errRun := <-errCh:
		return errRun
	case <-ctx.Done():
		s.log.Info(ctx, "shutting down", "cause", context.Cause(ctx).Error())
		return nil
	}
}

func (s *SettlementWorker) close(ctx context.Context) {
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

	s.postgresDB.Close()
}
