package repositories

import (
	"context"
	"fmt"

	"badgekit/internal/database"
	"badgekit/internal/models"

	"go.uber.org/zap"
)

// imageRepository implements ImageRepository on PostgreSQL
type imageRepository struct {
	*BaseRepository
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *database.Manager, logger *zap.Logger) ImageRepository {
	return &imageRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Put inserts a new image or overwrites an existing one in place
func (r *imageRepository) Put(ctx context.Context, image *models.Image) (int64, error) {
	if image.ID == 0 {
		var id int64
		err := r.QueryRowContext(ctx,
			`INSERT INTO images (mimetype, data) VALUES ($1, $2) RETURNING id`,
			image.MimeType, image.Data,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert image: %w", err)
		}

		r.GetLogger().Info("Badge image stored",
			zap.Int64("image_id", id),
			zap.String("mimetype", image.MimeType),
			zap.Int("size", len(image.Data)),
		)
		return id, nil
	}

	result, err := r.ExecContext(ctx,
		`UPDATE images SET mimetype = $2, data = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		image.ID, image.MimeType, image.Data,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update image: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, fmt.Errorf("update image %d: %w", image.ID, ErrImageNotFound)
	}

	return image.ID, nil
}

// GetByID loads an image row
func (r *imageRepository) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	var image models.Image
	err := r.QueryRowContext(ctx,
		`SELECT id, mimetype, data FROM images WHERE id = $1`, id,
	).Scan(&image.ID, &image.MimeType, &image.Data)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get image by ID: %w", err)
	}

	return &image, nil
}
