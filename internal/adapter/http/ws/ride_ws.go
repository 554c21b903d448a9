package wshandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/gorilla/websocket"
)

const keepAliveInterval = 30 * time.Second

type (
	Authorizer interface {
		Authorize(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.Ride, error)
	}

	Subscriptions interface {
		Subscribe(key uuid.UUID, sub ws.Subscriber) error
		Unsubscribe(key uuid.UUID, sub ws.Subscriber)
		KeepAlive(ctx context.Context, key uuid.UUID, sub ws.Subscriber, interval time.Duration) error
	}
)

// RideWsHandler upgrades ride channel subscriptions.
type RideWsHandler struct {
	auth     Authorizer
	hub      Subscriptions
	upgrader websocket.Upgrader
	service  string
	l        logger.Logger
}

func NewRideWsHandler(auth Authorizer, hub Subscriptions, service string, l logger.Logger) *RideWsHandler {
	return &RideWsHandler{
		auth: auth,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Callers are identified by token, not by cookie.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		service: service,
		l:       l,
	}
}

// HandleRide godoc
// @Summary      Ride channel
// @Description  WebSocket stream of driver_location, ride_status_changed, driver_assigned, ride_completed and ride_cancelled events for one ride. The token may be passed as ?token=.
// @Tags         Realtime
// @Security     BearerAuth
// @Param        ride_id  path  string  true   "Ride ID"
// @Param        token    query string  false  "JWT"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /ws/rides/{ride_id} [get]
func (h *RideWsHandler) HandleRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRealtimeSubscribe)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid ride uuid format")
		return
	}
	ctx = wrap.WithRideID(ctx, rideID.String())

	caller := models.CallerFromContext(ctx)
	if caller.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ride, err := h.auth.Authorize(ctx, rideID, caller)
	if err != nil {
		code := handler.GetCode(err)
		if code == http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to authorize subscription", err)
			errorResponse(w, code, "the server encountered a problem and could not process your request")
			return
		}
		h.l.Warn(wrap.ErrorCtx(ctx, err), "subscription rejected", "error", err.Error(), "status", code)
		errorResponse(w, code, publicMessage(err))
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(ctx, wsConn)
	defer conn.Close()

	if err := h.hub.Subscribe(rideID, conn); err != nil {
		h.l.Warn(ctx, "subscription refused by hub", "error", err.Error())
		return
	}
	defer h.hub.Unsubscribe(rideID, conn)

	metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Inc()
	defer metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Dec()

	h.l.Info(ctx, "subscriber connected", "role", caller.Role, "subscriber_id", conn.ID().String())

	if err := h.sendSnapshot(conn, ride); err != nil {
		h.l.Warn(ctx, "failed to send ride snapshot", "error", err.Error())
		return
	}

	keepAliveCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		if err := h.hub.KeepAlive(keepAliveCtx, rideID, conn, keepAliveInterval); err != nil && !errors.Is(err, context.Canceled) {
			h.l.Debug(ctx, "keep-alive stopped", "error", err.Error())
		}
	}()

	if err := conn.ReadLoop(); err != nil {
		h.l.Debug(ctx, "subscriber read loop ended", "error", err.Error())
	}
	h.l.Info(ctx, "subscriber disconnected", "subscriber_id", conn.ID().String())
}

// sendSnapshot tells a fresh subscriber where the ride currently stands.
func (h *RideWsHandler) sendSnapshot(conn *ws.Conn, ride *models.Ride) error {
	event, err := models.NewRealtimeEvent(ride.ID, types.EventRideStatusChanged, models.RideStatusChangedPayload{
		Status:  ride.Status,
		Message: notify.StatusMessage(ride.Status),
	}, time.Now().UTC())
	if err != nil {
		return err
	}
	return conn.Send(event)
}

func publicMessage(err error) string {
	for _, target := range []error{types.ErrNotAuthorized, types.ErrRideNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
