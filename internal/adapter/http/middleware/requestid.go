package middleware

import (
	"net/http"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID propagates X-Request-ID, generating one when absent, and adds it to the log context.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, id)
		ctx := wrap.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
