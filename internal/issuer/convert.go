package issuer

import (
	"encoding/base64"
	"fmt"
	"strings"

	"badgekit/internal/models"
)

// ToLocal converts an issuing service badge into the draft shape
func ToLocal(ext *ExternalBadge) *models.Badge {
	if ext == nil {
		return nil
	}

	badge := &models.Badge{
		ID:                  ext.ID,
		Slug:                ext.Slug,
		Name:                ext.Name,
		Description:         ext.Description,
		Tags:                append([]string(nil), ext.Tags...),
		IssuerURL:           ext.IssuerURL,
		EarnerDescription:   ext.EarnerDescription,
		ConsumerDescription: ext.ConsumerDescription,
		RubricURL:           ext.RubricURL,
		TimeValue:           ext.TimeValue,
		TimeUnits:           ext.TimeUnits,
		Limit:               ext.Limit,
		Unique:              ext.Unique,
		MultiClaimCode:      ext.MultiClaimCode,
		Published:           true,
		Archived:            ext.Archived,
		ImageURL:            ext.ImageURL,
		Criteria:            make([]*models.Criterion, 0, len(ext.Criteria)),
	}

	for _, c := range ext.Criteria {
		criterion := &models.Criterion{
			Description: c.Description,
			Required:    c.Required,
			Note:        c.Note,
		}
		if c.ID != 0 {
			id := c.ID
			criterion.ID = &id
		}
		badge.Criteria = append(badge.Criteria, criterion)
	}

	return badge
}

// ToExternal converts a draft badge into the issuing service's format. A
// stored image is inlined as a data URI.
func ToExternal(badge *models.Badge) *ExternalBadge {
	if badge == nil {
		return nil
	}

	ext := &ExternalBadge{
		Slug:                badge.Slug,
		Name:                badge.Name,
		Description:         badge.Description,
		Tags:                append([]string{}, badge.Tags...),
		IssuerURL:           badge.IssuerURL,
		EarnerDescription:   badge.EarnerDescription,
		ConsumerDescription: badge.ConsumerDescription,
		RubricURL:           badge.RubricURL,
		TimeValue:           badge.TimeValue,
		TimeUnits:           badge.TimeUnits,
		Limit:               badge.Limit,
		Unique:              badge.Unique,
		MultiClaimCode:      badge.MultiClaimCode,
		Archived:            badge.Archived,
		ImageURL:            badge.ImageURL,
		Criteria:            make([]ExternalCriterion, 0, len(badge.Criteria)),
	}

	if ext.Slug == "" {
		ext.Slug = Slugify(badge.Name)
	}
	if ext.Slug == "" {
		ext.Slug = fmt.Sprintf("badge-%d", badge.ID)
	}

	for _, c := range badge.Criteria {
		ext.Criteria = append(ext.Criteria, ExternalCriterion{
			Description: c.Description,
			Required:    c.Required,
			Note:        c.Note,
		})
	}

	if badge.Image != nil && len(badge.Image.Data) > 0 {
		ext.Image = DataURI(badge.Image.MimeType, badge.Image.Data)
	}

	return ext
}

// DataURI encodes raw image bytes as a base64 data URI
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single dash.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	return b.String()
}
