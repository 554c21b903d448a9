package middleware

import (
	"fmt"
	"net/http"
)

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				m.log.Error(r.Context(), "panic recovered", fmt.Errorf("%v", p), "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Connection", "close")
				errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
