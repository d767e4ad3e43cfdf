package router

import (
	"net/http"
	"time"

	"badgekit/internal/middleware"
	"badgekit/internal/response"
	"badgekit/internal/services"
	"badgekit/internal/utils/appinfo"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// requestTimeout bounds each request's context
const requestTimeout = 60 * time.Second

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	registry *prometheus.Registry,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Outermost first: request id and logger, then recovery so panics are
	// logged with the request context
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.StructuredLogging(middleware.DefaultLoggingConfig()))
	r.Use(middleware.Recovery(middleware.DefaultRecoveryConfig(), logger))
	r.Use(response.Middleware(responseBuilder))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(""))
	r.Use(chimiddleware.Timeout(requestTimeout))

	if registry != nil {
		r.Use(middleware.NewHTTPMetrics(registry).Middleware)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
		}))
	}

	SetupMonitoringRoutes(r, serviceCollection, responseBuilder)
	AddAPIv1Routes(r, serviceCollection, responseBuilder, logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteError(w, r, services.NewNotFoundError("route not found"))
	})

	return r
}

// SetupMonitoringRoutes adds health and build information endpoints
func SetupMonitoringRoutes(r chi.Router, serviceCollection *services.ServiceCollection, responseBuilder *response.Builder) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health, err := serviceCollection.HealthCheck(r.Context())
		if err != nil {
			responseBuilder.WriteError(w, r, err)
			return
		}
		responseBuilder.WriteHealthCheck(w, r, health.Status, health)
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteSuccess(w, r, map[string]string{"status": "ok"})
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteSuccess(w, r, appinfo.Get())
	})
}
