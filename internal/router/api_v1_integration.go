package router

import (
	"badgekit/internal/handlers/api/v1/badges"
	"badgekit/internal/response"
	"badgekit/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddAPIv1Routes mounts the versioned API controllers
func AddAPIv1Routes(
	r chi.Router,
	serviceCollection *services.ServiceCollection,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) {
	badgeController := badges.NewBadgeController(
		serviceCollection.BadgeService,
		responseBuilder,
		&serviceCollection.Config.Server,
		logger.Named("api.badges"),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/badges", badgeController.Routes())
	})

	logger.Info("API v1 routes registered", zap.Strings("resources", []string{"badges"}))
}
