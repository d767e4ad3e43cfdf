package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"badgekit/internal/config"
	"badgekit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMirror(t *testing.T, handler http.HandlerFunc) *CloudinaryMirror {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	mirror, err := NewCloudinaryMirror(&config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		Folder:    "test-badges",
	}, zap.NewNop())
	require.NoError(t, err)

	// the uploader holds its own copy of the client config
	mirror.Client.Upload.Config.API.UploadPrefix = server.URL
	mirror.Config.UploadTimeout = 5 * time.Second
	mirror.Config.MaxRetries = 1
	return mirror
}

func TestNewCloudinaryMirror_MissingCredentials(t *testing.T) {
	_, err := NewCloudinaryMirror(&config.CloudinaryConfig{CloudName: "demo"}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCloudinaryMirror_Upload(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1_1/demo/auto/upload"), r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "reader", r.FormValue("public_id"))
		assert.Equal(t, "test-badges", r.FormValue("folder"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"public_id":"test-badges/reader","format":"png","bytes":4,
			"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/test-badges/reader.png"}`)
	})

	url, err := mirror.Upload(context.Background(), "reader", &models.Image{
		MimeType: "image/png",
		Data:     []byte{0x89, 'P', 'N', 'G'},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/test-badges/reader.png", url)
}

func TestCloudinaryMirror_UploadFailure(t *testing.T) {
	var calls int32
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid image file"}}`)
	})

	_, err := mirror.Upload(context.Background(), "reader", &models.Image{Data: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestCloudinaryMirror_EmptyImage(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := mirror.Upload(context.Background(), "reader", &models.Image{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}
