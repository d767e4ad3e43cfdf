package services

import (
	"io"

	"badgekit/internal/models"
)

// ===============================
// BADGE SERVICE TYPES
// ===============================

// Badge categories accepted by Resolve
const (
	CategoryDraft     = "draft"
	CategoryTemplate  = "template"
	CategoryPublished = "published"
)

// SaveBadgeRequest is the raw edit form of a badge. Numeric fields and
// toggles arrive as submitted strings and are normalized by the service.
type SaveBadgeRequest struct {
	BadgeID             string           `json:"badgeId" schema:"badgeId"`
	Name                string           `json:"name" schema:"name" validate:"max=255"`
	Description         string           `json:"description" schema:"description"`
	Tags                []string         `json:"tags" schema:"tags"`
	IssuerURL           string           `json:"issuerUrl" schema:"issuerUrl"`
	EarnerDescription   string           `json:"earnerDescription" schema:"earnerDescription"`
	ConsumerDescription string           `json:"consumerDescription" schema:"consumerDescription"`
	RubricURL           string           `json:"rubricUrl" schema:"rubricUrl"`
	TimeValue           string           `json:"timeValue" schema:"timeValue"`
	TimeUnits           string           `json:"timeUnits" schema:"timeUnits" validate:"max=32"`
	Limit               string           `json:"limit" schema:"limit"`
	LimitNumber         string           `json:"limitNumber" schema:"limitNumber"`
	Unique              string           `json:"unique" schema:"unique"`
	MultiClaimCode      string           `json:"multiClaimCode" schema:"multiClaimCode"`
	NumCriteria         string           `json:"numCriteria" schema:"numCriteria"`
	Criteria            []CriterionInput `json:"criteria" schema:"criteria"`

	// Uploads are attached by the transport layer, not decoded from the form
	UploadImage *UploadedFile `json:"-" schema:"-"`
	StudioImage *UploadedFile `json:"-" schema:"-"`
}

// CriterionInput is one submitted criterion row
type CriterionInput struct {
	ID          string `json:"id" schema:"id"`
	Description string `json:"description" schema:"description"`
	Required    string `json:"required" schema:"required"`
	Note        string `json:"note" schema:"note"`
}

// UploadedFile describes a file received with a save request
type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// IssueByEmailRequest asks for a published badge to be awarded to an email
type IssueByEmailRequest struct {
	Slug  string `json:"slug" validate:"required"`
	Email string `json:"email" schema:"email" validate:"required,email"`
}

// TransitionResult is returned by transitions that redirect the caller
type TransitionResult struct {
	Location string `json:"location"`
}

// SaveResult is the refreshed draft after a save and where to edit it next
type SaveResult struct {
	Badge    *models.Badge `json:"badge"`
	Location string        `json:"location"`
}
