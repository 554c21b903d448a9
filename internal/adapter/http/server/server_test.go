package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

func TestNew_RequiresModeHandlers(t *testing.T) {
	tokens := auth.NewTokenService("secret")

	if _, err := New(config.Config{Mode: types.RideService}, tokens, Handlers{}, logger.Nop()); err == nil {
		t.Fatalf("ride-service without ride handler must fail")
	}
	if _, err := New(config.Config{Mode: "admin-service"}, tokens, Handlers{}, logger.Nop()); err == nil {
		t.Fatalf("unknown mode must fail")
	}
	if _, err := New(config.Config{Mode: types.SettlementWorker}, tokens, Handlers{}, logger.Nop()); err != nil {
		t.Fatalf("settlement worker needs no handlers: %v", err)
	}
}

func TestRideRoutes_Gating(t *testing.T) {
	tokens := auth.NewTokenService("secret")
	ride := handler.NewRide(nil, nil, nil, nil, nil, logger.Nop())

	api, err := New(config.Config{Mode: types.RideService}, tokens, Handlers{Ride: ride}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	passenger, err := tokens.Issue(models.Caller{ID: uuid.New(), Role: types.RolePassenger}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"create anonymous", http.MethodPost, "/rides", "", http.StatusUnauthorized},
		{"available as passenger", http.MethodGet, "/rides/available", passenger, http.StatusForbidden},
		{"accept as passenger", http.MethodPost, "/rides/" + uuid.New().String() + "/accept", passenger, http.StatusForbidden},
		{"bad token", http.MethodGet, "/rides/" + uuid.New().String(), "garbage", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/drivers", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			api.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("want %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("request id header missing")
			}
		})
	}
}
