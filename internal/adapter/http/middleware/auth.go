package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

var errBadAuthHeader = errors.New("invalid Authorization header format")

// Auth verifies the bearer token and stores the caller in the context.
// Requests without a token continue as anonymous; protected routes reject them in RequireRoles.
// The websocket upgrade may pass the token as ?token= instead, since browsers cannot set headers there.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := tokenFromRequest(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		caller, err := h.auth.Identify(ctx, token)
		if err != nil {
			h.log.Warn(wrap.ErrorCtx(ctx, err), "failed to authenticate caller", "error", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithUserID(ctx, caller.ID.String())
		next.ServeHTTP(w, r.WithContext(models.WithCaller(ctx, caller)))
	})
}

// RequireRoles allows only identified callers with one of the given roles.
// With no roles any identified caller passes.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := models.CallerFromContext(r.Context())
		if caller.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[caller.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return extractBearerToken(header)
	}
	if strings.HasPrefix(r.URL.Path, "/ws/") {
		return r.URL.Query().Get("token"), nil
	}
	return "", nil
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errBadAuthHeader
	}
	return parts[1], nil
}
