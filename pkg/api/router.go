package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/metrics"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (database connectivity)
//   - GET /status - Record counts for the configured namespace
//   - GET /metrics - Prometheus metrics (404 when metrics are disabled)
func NewRouter(store *status.Store, namespace string) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", liveness)
		r.Get("/ready", readiness(store))
	})

	r.Get("/status", statusSummary(store, namespace))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// liveness handles GET /health. It succeeds as long as the HTTP server is
// responsive.
func liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthyResponse(map[string]string{
		"service": "hsmwatch",
	}))
}

// readiness handles GET /health/ready by verifying database connectivity.
func readiness(store *status.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("status store not initialized"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			JSON(w, http.StatusServiceUnavailable, UnhealthyResponse(err.Error()))
			return
		}

		JSON(w, http.StatusOK, HealthyResponse(nil))
	}
}

// statusSummary handles GET /status with record counts per value.
func statusSummary(store *status.Store, namespace string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			JSON(w, http.StatusServiceUnavailable, ErrorResponse("status store not initialized"))
			return
		}

		online, offline, err := store.CountRecords(r.Context(), namespace)
		if err != nil {
			JSON(w, http.StatusInternalServerError, ErrorResponse(err.Error()))
			return
		}

		JSON(w, http.StatusOK, OKResponse(map[string]interface{}{
			"namespace": namespace,
			"online":    online,
			"offline":   offline,
		}))
	}
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("ops request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("ops request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
