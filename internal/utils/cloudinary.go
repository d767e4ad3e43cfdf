package utils

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"badgekit/internal/config"
	"badgekit/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// MirrorConfig holds settings for image mirroring
type MirrorConfig struct {
	Folder        string
	UploadTimeout time.Duration
	MaxRetries    int
}

// DefaultMirrorConfig provides default mirroring settings
func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{
		Folder:        "badges",
		UploadTimeout: 30 * time.Second,
		MaxRetries:    3,
	}
}

// Custom errors for specific failure cases.
var (
	ErrMissingCredentials = fmt.Errorf("cloudinary credentials are missing")
	ErrCloudinaryInit     = fmt.Errorf("failed to initialize Cloudinary")
	ErrEmptyImage         = fmt.Errorf("image has no data")
	ErrUploadFailed       = fmt.Errorf("failed to upload image")
)

// CloudinaryMirror hosts published badge images on Cloudinary
type CloudinaryMirror struct {
	Client *cloudinary.Cloudinary
	Config MirrorConfig
	Logger *zap.Logger
}

// NewCloudinaryMirror creates a mirror from Cloudinary configuration
func NewCloudinaryMirror(cfg *config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryMirror, error) {
	if !cfg.Enabled() {
		return nil, ErrMissingCredentials
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloudinaryInit, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	mirrorConfig := DefaultMirrorConfig()
	if cfg.Folder != "" {
		mirrorConfig.Folder = cfg.Folder
	}

	logger.Info("Cloudinary image mirror initialized", zap.String("folder", mirrorConfig.Folder))

	return &CloudinaryMirror{
		Client: cld,
		Config: mirrorConfig,
		Logger: logger,
	}, nil
}

// ptrBool returns a pointer to a bool.
func ptrBool(b bool) *bool {
	return &b
}

// Upload stores the image under name, overwriting any earlier upload with the
// same name, and returns its secure URL
func (c *CloudinaryMirror) Upload(ctx context.Context, name string, image *models.Image) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", ErrEmptyImage
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.Config.UploadTimeout)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:    c.Config.Folder,
		PublicID:  name,
		Overwrite: ptrBool(true),
	}

	var result *uploader.UploadResult
	operation := func() error {
		var opErr error
		result, opErr = c.Client.Upload.Upload(ctx, bytes.NewReader(image.Data), uploadParams)
		if opErr == nil && result.Error.Message != "" {
			opErr = fmt.Errorf("%s", result.Error.Message)
		}
		return opErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.Config.UploadTimeout / 2
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.Config.MaxRetries)), ctx),
		func(err error, d time.Duration) {
			c.Logger.Warn("Image upload attempt failed",
				zap.String("name", name),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		c.Logger.Error("All image upload attempts failed",
			zap.String("name", name),
			zap.Int("attempts", c.Config.MaxRetries),
			zap.Error(err))
		return "", fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, c.Config.MaxRetries, err)
	}

	c.Logger.Info("Badge image mirrored",
		zap.String("name", name),
		zap.String("mimetype", image.MimeType),
		zap.Int("size", len(image.Data)),
		zap.Duration("duration", time.Since(startTime)),
		zap.String("public_id", result.PublicID),
		zap.String("url", result.SecureURL))

	return result.SecureURL, nil
}
