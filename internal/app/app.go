package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/app/microservices"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

var (
	ErrInvalidMode           = errors.New("invalid mode")
	ErrServiceNotInitialized = errors.New("service not initialized")
)

// Service runs until ctx is done or it fails, then releases its resources.
type Service interface {
	Start(ctx context.Context) error
}

type App struct {
	mode    types.ServiceMode
	service Service

	cfg config.Config
	log logger.Logger
}

// NewApplication connects the infrastructure of the configured mode.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	app := &App{
		mode: cfg.Mode,
		cfg:  cfg,
		log:  log,
	}

	if err := app.initService(ctx, app.mode); err != nil {
		return nil, err
	}

	return app, nil
}

// Run starts the service and stops it on SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	if a.service == nil {
		return ErrServiceNotInitialized
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("%s: %w", a.mode, err)
	}

	a.log.Info(context.WithoutCancel(ctx), "application stopped", "mode", a.mode)
	return nil
}

func (a *App) initService(ctx context.Context, mode types.ServiceMode) error {
	var (
		service Service
		err     error
	)
	switch mode {
	case types.RideService:
		service, err = microservices.NewRide(ctx, a.cfg, a.log)
	case types.RealtimeService:
		service, err = microservices.NewRealtime(ctx, a.cfg, a.log)
	case types.SettlementWorker:
		service, err = microservices.NewSettlementWorker(ctx, a.cfg, a.log)
	default:
		return ErrInvalidMode
	}

	if err != nil {
		return fmt.Errorf("failed to init service: %w", err)
	}
	if service == nil {
		return fmt.Errorf("failed to initialize: %s", mode)
	}

	a.service = service

	return nil
}
