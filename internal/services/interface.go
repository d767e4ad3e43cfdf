package services

import (
	"context"

	"badgekit/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// BadgeService drives the badge lifecycle across the draft store and the
// issuing service
type BadgeService interface {
	// Access
	Resolve(ctx context.Context, identifier, category string) (*models.Badge, error)
	GetImage(ctx context.Context, badgeID int64) (*models.Image, error)

	// Lifecycle transitions
	Save(ctx context.Context, req *SaveBadgeRequest) (*models.Badge, error)
	Publish(ctx context.Context, badgeID int64, req *SaveBadgeRequest) (*TransitionResult, error)
	Archive(ctx context.Context, slug string) error
	Copy(ctx context.Context, slug string) (*TransitionResult, error)

	// Issuing
	IssueByEmail(ctx context.Context, req *IssueByEmailRequest) (*TransitionResult, error)
}

// ImageHost stores a published badge image and returns its public URL
type ImageHost interface {
	Upload(ctx context.Context, name string, image *models.Image) (string, error)
}

