package services

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"12", 12, true},
		{"  7", 7, true},
		{"+4", 4, true},
		{"-5", -5, true},
		{"3.9", 3, true},
		{"10px", 10, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"--3", 0, false},
		{"99999999999", math.MaxInt32, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseLeadingInt(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeBadge(t *testing.T) {
	badge, err := normalizeBadge(&SaveBadgeRequest{
		BadgeID:     "12",
		Name:        "Reader",
		Tags:        []string{"books"},
		TimeValue:   "3 hours",
		TimeUnits:   "hours",
		Limit:       "limit",
		LimitNumber: "-2",
		Unique:      "unique",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), badge.ID)
	assert.Equal(t, 3, badge.TimeValue)
	assert.Zero(t, badge.Limit)
	assert.True(t, badge.Unique)
	assert.Equal(t, []string{"books"}, badge.Tags)

	badge, err = normalizeBadge(&SaveBadgeRequest{Name: "Reader", Unique: "on"})
	require.NoError(t, err)
	assert.Zero(t, badge.ID)
	assert.False(t, badge.Unique)

	_, err = normalizeBadge(&SaveBadgeRequest{BadgeID: "-1"})
	assert.True(t, IsValidationError(err))
}

func TestNormalizeCriteria(t *testing.T) {
	inputs := []CriterionInput{
		{ID: "4", Description: "Read", Required: "on", Note: "any book"},
		{ID: "", Description: "Review", Required: "off"},
		{ID: "x", Description: "Share"},
	}

	t.Run("count larger than rows", func(t *testing.T) {
		criteria := normalizeCriteria("10", inputs)
		require.Len(t, criteria, 3)

		require.NotNil(t, criteria[0].ID)
		assert.Equal(t, int64(4), *criteria[0].ID)
		assert.True(t, criteria[0].Required)
		assert.Equal(t, "any book", criteria[0].Note)

		assert.Nil(t, criteria[1].ID)
		assert.False(t, criteria[1].Required)
		assert.Nil(t, criteria[2].ID)
	})

	t.Run("count truncates", func(t *testing.T) {
		assert.Len(t, normalizeCriteria("1", inputs), 1)
	})

	t.Run("negative or missing count", func(t *testing.T) {
		assert.Empty(t, normalizeCriteria("-3", inputs))
		assert.Empty(t, normalizeCriteria("", inputs))
		assert.NotNil(t, normalizeCriteria("", nil))
	})
}

func TestSelectUpload(t *testing.T) {
	plain := &UploadedFile{Filename: "plain.png"}
	studio := &UploadedFile{Filename: "studio.png"}

	assert.Nil(t, selectUpload(&SaveBadgeRequest{}))
	assert.Same(t, plain, selectUpload(&SaveBadgeRequest{UploadImage: plain}))
	assert.Same(t, studio, selectUpload(&SaveBadgeRequest{UploadImage: plain, StudioImage: studio}))
}

func TestReadUpload(t *testing.T) {
	fileOf := func(contentType string, data string) *UploadedFile {
		return &UploadedFile{
			Filename:    "badge",
			ContentType: contentType,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(data)), nil
			},
		}
	}

	tests := []struct {
		name        string
		file        *UploadedFile
		wantMime    string
		wantDataLen int
	}{
		{"declared type kept", fileOf("image/svg+xml", "<svg/>"), "image/svg+xml", 6},
		{"missing type sniffed", fileOf("", string(pngBytes)), "image/png", len(pngBytes)},
		{"generic type sniffed", fileOf("application/octet-stream", "GIF89a......"), "image/gif", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mimeType, err := readUpload(tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, mimeType)
			assert.Len(t, data, tt.wantDataLen)
		})
	}

	t.Run("open failure", func(t *testing.T) {
		_, _, err := readUpload(&UploadedFile{
			Filename: "broken",
			Open:     func() (io.ReadCloser, error) { return nil, errors.New("gone") },
		})
		assert.Error(t, err)
	})

	t.Run("no content", func(t *testing.T) {
		_, _, err := readUpload(&UploadedFile{Filename: "empty"})
		assert.Error(t, err)
	})
}
