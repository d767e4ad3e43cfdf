package repositories

import (
	"fmt"

	"badgekit/internal/database"

	"go.uber.org/zap"
)

// Collection holds the draft store repositories for dependency injection
type Collection struct {
	Badge BadgeRepository
	Image ImageRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	images := NewImageRepository(db, logger)

	collection := &Collection{
		Badge:  NewBadgeRepository(db, images, logger),
		Image:  images,
		db:     db,
		logger: logger,
	}

	logger.Info("Repository collection initialized successfully",
		zap.Duration("slow_query_threshold", db.SlowQueryThreshold()),
	)

	return collection, nil
}
