package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"badgekit/internal/database"
	"badgekit/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository on PostgreSQL
type badgeRepository struct {
	*BaseRepository
	images ImageRepository
}

// NewBadgeRepository creates a new draft badge repository
func NewBadgeRepository(db *database.Manager, images ImageRepository, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
		images:         images,
	}
}

const badgeColumns = `
	id, slug, name, description, tags, issuer_url, earner_description,
	consumer_description, rubric_url, time_value, time_units, "limit",
	"unique", multi_claim_code, published, archived, image_id,
	created_at, updated_at`

// ===============================
// WRITE OPERATIONS
// ===============================

// Put inserts a new draft or updates the editable metadata of an existing one
func (r *badgeRepository) Put(ctx context.Context, badge *models.Badge) (int64, error) {
	if badge.ID == 0 {
		return r.insert(ctx, badge)
	}
	return badge.ID, r.updateMetadata(ctx, badge)
}

func (r *badgeRepository) insert(ctx context.Context, badge *models.Badge) (int64, error) {
	query := `
		INSERT INTO badges (
			slug, name, description, tags, issuer_url, earner_description,
			consumer_description, rubric_url, time_value, time_units, "limit",
			"unique", multi_claim_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var id int64
	err := r.QueryRowContext(ctx, query,
		badge.Slug, badge.Name, badge.Description, pq.Array(nonNilTags(badge.Tags)),
		badge.IssuerURL, badge.EarnerDescription, badge.ConsumerDescription,
		badge.RubricURL, badge.TimeValue, badge.TimeUnits, badge.Limit,
		badge.Unique, badge.MultiClaimCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert badge: %w", err)
	}

	r.GetLogger().Info("Badge draft created",
		zap.Int64("badge_id", id),
		zap.String("name", badge.Name),
	)

	return id, nil
}

func (r *badgeRepository) updateMetadata(ctx context.Context, badge *models.Badge) error {
	query := `
		UPDATE badges SET
			name = $2, description = $3, tags = $4, issuer_url = $5,
			earner_description = $6, consumer_description = $7, rubric_url = $8,
			time_value = $9, time_units = $10, "limit" = $11, "unique" = $12,
			multi_claim_code = $13, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query,
		badge.ID, badge.Name, badge.Description, pq.Array(nonNilTags(badge.Tags)),
		badge.IssuerURL, badge.EarnerDescription, badge.ConsumerDescription,
		badge.RubricURL, badge.TimeValue, badge.TimeUnits, badge.Limit,
		badge.Unique, badge.MultiClaimCode,
	)
	if err != nil {
		return fmt.Errorf("failed to update badge: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("update badge %d: %w", badge.ID, ErrBadgeNotFound)
	}

	return nil
}

// Update applies a partial update to a badge row
func (r *badgeRepository) Update(ctx context.Context, update *models.BadgeUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	setParts := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{update.ID}
	where := "id = $1"

	if update.Published != nil {
		args = append(args, *update.Published)
		setParts = append(setParts, fmt.Sprintf("published = $%d", len(args)))
	}
	if update.Slug != nil {
		args = append(args, *update.Slug)
		setParts = append(setParts, fmt.Sprintf("slug = $%d", len(args)))
	}
	if update.ImageID != nil {
		args = append(args, *update.ImageID)
		setParts = append(setParts, fmt.Sprintf("image_id = $%d", len(args)))
		// image_id is assigned once per badge lifetime
		where += " AND image_id IS NULL"
	}

	query := fmt.Sprintf("UPDATE badges SET %s WHERE %s", strings.Join(setParts, ", "), where)

	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update badge: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.explainMissedUpdate(ctx, update)
	}

	return nil
}

func (r *badgeRepository) explainMissedUpdate(ctx context.Context, update *models.BadgeUpdate) error {
	var imageID sql.NullInt64
	err := r.QueryRowContext(ctx, `SELECT image_id FROM badges WHERE id = $1`, update.ID).Scan(&imageID)
	if err != nil {
		if r.IsNotFound(err) {
			return fmt.Errorf("update badge %d: %w", update.ID, ErrBadgeNotFound)
		}
		return fmt.Errorf("failed to inspect badge: %w", err)
	}

	return fmt.Errorf("update badge %d (image %d): %w", update.ID, imageID.Int64, ErrImageAlreadyAttached)
}

// SetCriteria replaces the criterion set of a badge in one transaction.
// Criteria with an ID owned by the badge are updated in place, the rest are
// inserted, and rows missing from the list are deleted.
func (r *badgeRepository) SetCriteria(ctx context.Context, badgeID int64, criteria []*models.Criterion) error {
	keep := make([]int64, 0, len(criteria))
	for _, c := range criteria {
		if c.ID != nil {
			keep = append(keep, *c.ID)
		}
	}

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM criteria WHERE badge_id = $1 AND NOT (id = ANY($2))`,
			badgeID, pq.Array(keep),
		); err != nil {
			return fmt.Errorf("failed to delete stale criteria: %w", err)
		}

		for _, c := range criteria {
			c.BadgeID = badgeID

			if c.ID != nil {
				result, err := tx.ExecContext(ctx,
					`UPDATE criteria SET description = $3, required = $4, note = $5
					 WHERE id = $1 AND badge_id = $2`,
					*c.ID, badgeID, c.Description, c.Required, c.Note,
				)
				if err != nil {
					return fmt.Errorf("failed to update criterion %d: %w", *c.ID, err)
				}
				if rows, _ := result.RowsAffected(); rows > 0 {
					continue
				}
				// The ID did not belong to this badge; store it as a new row.
			}

			var id int64
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO criteria (badge_id, description, required, note)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				badgeID, c.Description, c.Required, c.Note,
			).Scan(&id); err != nil {
				return fmt.Errorf("failed to insert criterion: %w", err)
			}
			c.ID = &id
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.GetLogger().Debug("Badge criteria replaced",
		zap.Int64("badge_id", badgeID),
		zap.Int("count", len(criteria)),
	)

	return nil
}

// ===============================
// READ OPERATIONS
// ===============================

// GetByID loads a badge, optionally with its criteria and image
func (r *badgeRepository) GetByID(ctx context.Context, id int64, opts models.GetOptions) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE id = $1`

	badge, err := scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by ID: %w", err)
	}

	if !opts.Relationships {
		return badge, nil
	}

	if badge.Criteria, err = r.getCriteria(ctx, badge.ID); err != nil {
		return nil, err
	}

	if badge.ImageID != nil {
		if badge.Image, err = r.images.GetByID(ctx, *badge.ImageID); err != nil {
			return nil, err
		}
	}

	return badge, nil
}

func (r *badgeRepository) getCriteria(ctx context.Context, badgeID int64) ([]*models.Criterion, error) {
	rows, err := r.QueryContext(ctx,
		`SELECT id, badge_id, description, required, note
		 FROM criteria WHERE badge_id = $1 ORDER BY id`,
		badgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get criteria: %w", err)
	}
	defer rows.Close()

	criteria := make([]*models.Criterion, 0)
	for rows.Next() {
		var c models.Criterion
		var id int64
		if err := rows.Scan(&id, &c.BadgeID, &c.Description, &c.Required, &c.Note); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		c.ID = &id
		criteria = append(criteria, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate criteria: %w", err)
	}

	return criteria, nil
}

func scanBadge(row *sql.Row) (*models.Badge, error) {
	var badge models.Badge
	var imageID sql.NullInt64

	err := row.Scan(
		&badge.ID, &badge.Slug, &badge.Name, &badge.Description, pq.Array(&badge.Tags),
		&badge.IssuerURL, &badge.EarnerDescription, &badge.ConsumerDescription,
		&badge.RubricURL, &badge.TimeValue, &badge.TimeUnits, &badge.Limit,
		&badge.Unique, &badge.MultiClaimCode, &badge.Published, &badge.Archived,
		&imageID, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imageID.Valid {
		id := imageID.Int64
		badge.ImageID = &id
	}

	return &badge, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
