package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// Hijack lets gorilla/websocket upgrade through the wrapped writer.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics records request count, latency and in-flight gauge.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		metrics.HttpRequestsInFlight.WithLabelValues(m.service).Inc()
		defer metrics.HttpRequestsInFlight.WithLabelValues(m.service).Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		metrics.RecordHTTPMetrics(m.service, r.Method, routeLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

// routeLabel replaces id segments, e.g. /rides/<uuid>/status -> /rides/{id}/status.
func routeLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
