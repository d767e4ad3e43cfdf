package services

import (
	"context"
	"fmt"
	"time"

	"badgekit/internal/cache"
	"badgekit/internal/config"
	"badgekit/internal/database"
	"badgekit/internal/issuer"
	"badgekit/internal/repositories"
	"badgekit/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ServiceCollection holds the badge services with their dependencies
type ServiceCollection struct {
	// Core Services
	BadgeService BadgeService `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache     cache.Cache        `json:"-"`
	Issuer    issuer.Client      `json:"-"`
	ImageHost ImageHost          `json:"-"`
	Metrics   *TransitionMetrics `json:"-"`
	Logger    *zap.Logger        `json:"-"`
	Config    *config.Config     `json:"-"`
	DBManager *database.Manager  `json:"-"`

	startTime time.Time
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       time.Duration            `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, unhealthy
	LastCheck    time.Time     `json:"last_check"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// NewServiceCollection wires repositories, infrastructure and services
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	registry prometheus.Registerer,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
		Metrics:   NewTransitionMetrics(registry),
		startTime: time.Now(),
	}

	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	var err error
	collection.Repositories, err = repositories.NewCollection(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository collection: %w", err)
	}

	collection.BadgeService = NewBadgeService(
		collection.Repositories.Badge,
		collection.Repositories.Image,
		collection.Issuer,
		collection.Cache,
		collection.ImageHost,
		collection.Metrics,
		&BadgeConfig{
			DirectoryPath:      cfg.Server.DirectoryPath,
			CacheTTL:           cfg.Cache.TTL,
			SurfaceAwardErrors: cfg.Issuer.SurfaceAwardErrors,
		},
		logger.Named("badges"),
	)

	logger.Info("Service collection initialized successfully",
		zap.String("cache_provider", cfg.Cache.Provider),
		zap.Bool("image_mirror", collection.ImageHost != nil),
	)

	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

// initializeInfrastructure sets up the cache, issuing service client and
// image host
func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	readCache, err := cache.New(&sc.Config.Cache, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = readCache

	sc.Issuer = issuer.NewHTTPClient(&sc.Config.Issuer, sc.Logger)

	if sc.Config.Cloudinary.Enabled() {
		mirror, err := utils.NewCloudinaryMirror(&sc.Config.Cloudinary, sc.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
		sc.ImageHost = mirror
	} else {
		sc.Logger.Info("Cloudinary not configured, published images are sent inline")
	}

	sc.Logger.Info("Infrastructure components initialized")
	return nil
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck checks the draft store and the read cache
func (sc *ServiceCollection) HealthCheck(ctx context.Context) (*ServiceHealth, error) {
	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime),
		Issues:       []string{},
	}

	checks := make(map[string]func(context.Context) error)
	if sc.DBManager != nil {
		checks["database"] = sc.DBManager.Ping
	}
	if sc.Cache != nil {
		checks["cache"] = sc.Cache.Health
	}

	for name, check := range checks {
		status := checkDependency(ctx, name, check)
		health.Dependencies[name] = status
		if status.Status != "healthy" {
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", name, status.Error))
		}
	}

	if len(health.Issues) > 0 {
		health.Status = "unhealthy"
	}

	sc.Logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.Int("issues", len(health.Issues)),
	)

	return health, nil
}

func checkDependency(ctx context.Context, name string, check func(context.Context) error) ServiceStatus {
	start := time.Now()
	status := ServiceStatus{
		Name:      name,
		Status:    "healthy",
		LastCheck: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := check(checkCtx); err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}

	status.ResponseTime = time.Since(start)
	return status
}

// Shutdown releases the cache and database connections
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	var shutdownErrors []error

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
		}
	}

	if sc.DBManager != nil {
		if err := sc.DBManager.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		sc.Logger.Error("Errors occurred during shutdown",
			zap.Int("error_count", len(shutdownErrors)),
			zap.Errors("errors", shutdownErrors),
		)
		return fmt.Errorf("shutdown completed with %d errors", len(shutdownErrors))
	}

	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}
