package repositories

import (
	"context"
	"errors"

	"badgekit/internal/models"
)

var (
	// ErrBadgeNotFound is returned by writes addressed to a missing badge row
	ErrBadgeNotFound = errors.New("badge not found")
	// ErrImageNotFound is returned when an in-place image update matches no row
	ErrImageNotFound = errors.New("image not found")
	// ErrImageAlreadyAttached is returned when a badge already points at an image
	ErrImageAlreadyAttached = errors.New("badge already has an image attached")
)

// ===============================
// DRAFT STORE INTERFACES
// ===============================

// BadgeRepository defines the contract for draft badge persistence
type BadgeRepository interface {
	// Put inserts the badge when it has no ID and updates its editable
	// metadata otherwise. Returns the row ID.
	Put(ctx context.Context, badge *models.Badge) (int64, error)

	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id int64, opts models.GetOptions) (*models.Badge, error)

	// Update applies a partial update. Setting ImageID only succeeds while
	// the row has no image attached.
	Update(ctx context.Context, update *models.BadgeUpdate) error

	// SetCriteria replaces the badge's whole criterion set atomically.
	SetCriteria(ctx context.Context, badgeID int64, criteria []*models.Criterion) error
}

// ImageRepository defines the contract for badge image persistence
type ImageRepository interface {
	// Put inserts the image when it has no ID and overwrites it in place
	// otherwise. Returns the row ID.
	Put(ctx context.Context, image *models.Image) (int64, error)

	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id int64) (*models.Image, error)
}
