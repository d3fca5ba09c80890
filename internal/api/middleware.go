/**
 * @description
 * HTTP middleware for the payments-service: internal API key authentication
 * for service-to-service calls and Prometheus request instrumentation.
 */

package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gdc-properties/payments-service/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// InternalAuthMiddleware guards internal endpoints with a shared API key
// passed in the X-Internal-API-Key header. An empty configured key disables
// the check, which is only acceptable in local development.
func InternalAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	if apiKey == "" {
		log.Printf("level=warn component=api msg=\"internal api key not configured; internal endpoints are unauthenticated\"")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" {
				provided := r.Header.Get("X-Internal-API-Key")
				if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"error": "unauthorized"}`))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// MetricsMiddleware observes request latency per route pattern and status.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
