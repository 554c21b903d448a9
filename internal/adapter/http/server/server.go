package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/ride-dispatch/internal/adapter/http/ws"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

var ErrMissingHandler = errors.New("handler required by mode is missing")

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *Handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

// Handlers holds the handlers of every mode; only the ones of the configured mode are used.
type Handlers struct {
	Ride     *handler.Ride
	Realtime *wshandler.RideWsHandler
	// Checks are reported by GET /health, keyed by dependency name.
	Checks map[string]handler.HealthCheck

	health *handler.Health
}

func New(cfg config.Config, identifier middleware.Identifier, routes Handlers, logger logger.Logger) (*API, error) {
	switch cfg.Mode {
	case types.RideService:
		if routes.Ride == nil {
			return nil, fmt.Errorf("%w: ride", ErrMissingHandler)
		}
	case types.RealtimeService:
		if routes.Realtime == nil {
			return nil, fmt.Errorf("%w: realtime", ErrMissingHandler)
		}
	case types.SettlementWorker:
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	if identifier == nil {
		return nil, errors.New("caller identifier is required")
	}

	routes.health = handler.NewHealth(string(cfg.Mode), routes.Checks, logger)

	api := &API{
		mode:   cfg.Mode,
		mux:    http.NewServeMux(),
		routes: &routes,
		m:      middleware.NewMiddleware(identifier, string(cfg.Mode), logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port()),
		log:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler returns the full middleware chain over the routes.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
