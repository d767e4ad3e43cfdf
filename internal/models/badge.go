package models

import "time"

// ===============================
// DRAFT BADGE ENTITIES
// ===============================

// Badge is the locally editable draft form of a badge definition.
// ID is zero until the row has been persisted.
type Badge struct {
	ID                  int64    `json:"id,omitempty" db:"id"`
	Slug                string   `json:"slug,omitempty" db:"slug"`
	Name                string   `json:"name" db:"name" validate:"max=255"`
	Description         string   `json:"description" db:"description"`
	Tags                []string `json:"tags" db:"tags"`
	IssuerURL           string   `json:"issuer_url" db:"issuer_url"`
	EarnerDescription   string   `json:"earner_description" db:"earner_description"`
	ConsumerDescription string   `json:"consumer_description" db:"consumer_description"`
	RubricURL           string   `json:"rubric_url" db:"rubric_url"`
	TimeValue           int      `json:"time_value" db:"time_value" validate:"min=0"`
	TimeUnits           string   `json:"time_units" db:"time_units" validate:"omitempty,max=32"`
	Limit               int      `json:"limit" db:"limit" validate:"min=0"`
	Unique              bool     `json:"unique" db:"unique"`
	MultiClaimCode      string   `json:"multi_claim_code,omitempty" db:"multi_claim_code"`
	Published           bool     `json:"published" db:"published"`
	Archived            bool     `json:"archived" db:"archived"`
	ImageID             *int64   `json:"image_id,omitempty" db:"image_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Relationships (populated when requested)
	Criteria []*Criterion `json:"criteria,omitempty" db:"-"`
	Image    *Image       `json:"image,omitempty" db:"-"`

	// ImageURL is set for badges read from the issuing service
	ImageURL string `json:"image_url,omitempty" db:"-"`
}

// HasImage reports whether an image row is attached to the badge.
func (b *Badge) HasImage() bool {
	return b.ImageID != nil
}

// Criterion is one earning requirement of a badge. A nil ID marks a
// criterion that has not been persisted yet.
type Criterion struct {
	ID          *int64 `json:"id" db:"id"`
	BadgeID     int64  `json:"badge_id,omitempty" db:"badge_id"`
	Description string `json:"description" db:"description"`
	Required    bool   `json:"required" db:"required"`
	Note        string `json:"note" db:"note"`
}

// Image holds the raw bytes of a badge image.
type Image struct {
	ID       int64  `json:"id" db:"id"`
	MimeType string `json:"mimetype" db:"mimetype"`
	Data     []byte `json:"-" db:"data"`
}

// BadgeUpdate is a partial update of a badge row. Nil fields are left
// untouched.
type BadgeUpdate struct {
	ID        int64
	ImageID   *int64
	Published *bool
	Slug      *string
}

// IsEmpty reports whether the update carries no field changes.
func (u *BadgeUpdate) IsEmpty() bool {
	return u.ImageID == nil && u.Published == nil && u.Slug == nil
}

// GetOptions controls how much of a badge is loaded.
type GetOptions struct {
	Relationships bool
}
