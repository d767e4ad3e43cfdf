package services

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"badgekit/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/exp/slices"
)

// Form values that switch on the limit and unique settings
const (
	limitToggleValue  = "limit"
	uniqueToggleValue = "unique"
	requiredOnValue   = "on"
)

// mime types that carry no information about the upload
var opaqueMimeTypes = []string{"", "application/octet-stream"}

// ===============================
// PAYLOAD NORMALIZATION
// ===============================

// normalizeBadge converts a submitted edit form into a draft badge record.
// Negative or unparseable numbers become 0, and limit is kept only when the
// limit toggle is on.
func normalizeBadge(req *SaveBadgeRequest) (*models.Badge, error) {
	id, err := parseBadgeID(req.BadgeID)
	if err != nil {
		return nil, err
	}

	badge := &models.Badge{
		ID:                  id,
		Name:                req.Name,
		Description:         req.Description,
		Tags:                req.Tags,
		IssuerURL:           req.IssuerURL,
		EarnerDescription:   req.EarnerDescription,
		ConsumerDescription: req.ConsumerDescription,
		RubricURL:           req.RubricURL,
		TimeValue:           nonNegative(req.TimeValue),
		TimeUnits:           req.TimeUnits,
		Unique:              req.Unique == uniqueToggleValue,
		MultiClaimCode:      req.MultiClaimCode,
	}

	if req.Limit == limitToggleValue {
		badge.Limit = nonNegative(req.LimitNumber)
	}

	return badge, nil
}

// normalizeCriteria keeps the first numCriteria submitted rows. The count is
// authoritative; trailing rows beyond it are ignored.
func normalizeCriteria(numCriteria string, inputs []CriterionInput) []*models.Criterion {
	n := nonNegative(numCriteria)
	if n > len(inputs) {
		n = len(inputs)
	}

	criteria := make([]*models.Criterion, 0, n)
	for _, in := range inputs[:n] {
		c := &models.Criterion{
			Description: in.Description,
			Required:    in.Required == requiredOnValue,
			Note:        in.Note,
		}
		if id, ok := parseLeadingInt(in.ID); ok && id > 0 {
			v := int64(id)
			c.ID = &v
		}
		criteria = append(criteria, c)
	}

	return criteria
}

func parseBadgeID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, InvalidInputError("badgeId", "must be a positive integer")
	}

	return id, nil
}

// nonNegative parses an integer prefix of s, returning 0 when s has no
// digits or the value is negative.
func nonNegative(s string) int {
	v, ok := parseLeadingInt(s)
	if !ok || v < 0 {
		return 0
	}
	return v
}

// parseLeadingInt reads an optionally signed base-10 integer from the start
// of s after leading whitespace, ignoring anything after the digits. Values
// are clamped to the int32 range of the storage columns.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	var v int64
	for _, d := range s[:end] {
		v = v*10 + int64(d-'0')
		if v > math.MaxInt32 {
			v = math.MaxInt32
			break
		}
	}

	if negative {
		v = -v
	}

	return int(v), true
}

// ===============================
// UPLOAD HANDLING
// ===============================

// selectUpload picks the studio image over the plain upload
func selectUpload(req *SaveBadgeRequest) *UploadedFile {
	if req.StudioImage != nil {
		return req.StudioImage
	}
	return req.UploadImage
}

// readUpload loads the uploaded bytes and resolves the MIME type, sniffing
// the content when the declared type is missing or generic.
func readUpload(file *UploadedFile) ([]byte, string, error) {
	if file.Open == nil {
		return nil, "", fmt.Errorf("upload %q has no content", file.Filename)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload %q: %w", file.Filename, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if file.Size > 0 {
		buf.Grow(int(file.Size))
	}
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, "", fmt.Errorf("failed to read upload %q: %w", file.Filename, err)
	}

	data := buf.Bytes()
	mimeType := strings.TrimSpace(file.ContentType)
	if slices.Contains(opaqueMimeTypes, strings.ToLower(mimeType)) {
		mimeType = mimetype.Detect(data).String()
	}

	return data, mimeType, nil
}
