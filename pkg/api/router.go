package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/httpsys/internal/logger"
	"github.com/marmos91/httpsys/pkg/api/handlers"
	"github.com/marmos91/httpsys/pkg/metrics"
)

const requestTimeout = 30 * time.Second

// NewRouter returns the management API handler. The /api/v1 routes need a
// listener; /metrics appears once the metrics registry is initialized.
func NewRouter(listener handlers.ListenerService, features handlers.FeatureSource) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)

	var status handlers.StatusSource
	if listener != nil {
		status = listener
	}
	health := handlers.NewHealthHandler(status)
	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if listener != nil {
		r.Mount("/api/v1", managementRoutes(handlers.NewListenerHandler(listener, features)))
	}

	if h := metrics.Handler(); h != nil {
		r.Handle("/metrics", h)
	}

	r.Get("/", http.RedirectHandler("/health", http.StatusTemporaryRedirect).ServeHTTP)
	return r
}

func managementRoutes(h *handlers.ListenerHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Get("/features", h.Features)
	r.Route("/delegations", func(r chi.Router) {
		r.Get("/", h.ListDelegations)
		r.Post("/", h.CreateDelegation)
	})
	return r
}

// requestLogger writes one record per request. Server errors log at WARN,
// everything else at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logger.Debug
		if ww.Status() >= http.StatusInternalServerError {
			log = logger.Warn
		}
		log("API request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", logger.Duration(start),
		)
	})
}
