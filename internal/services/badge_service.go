package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"badgekit/internal/cache"
	"badgekit/internal/issuer"
	"badgekit/internal/models"
	"badgekit/internal/repositories"
	"badgekit/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BadgeConfig holds badge service settings
type BadgeConfig struct {
	// DirectoryPath is the badge listing that transitions redirect to
	DirectoryPath string
	// CacheTTL bounds how long a published badge read is reused
	CacheTTL time.Duration
	// SurfaceAwardErrors returns award failures to the caller instead of
	// only logging them
	SurfaceAwardErrors bool
}

// DefaultBadgeConfig returns the default badge service settings
func DefaultBadgeConfig() *BadgeConfig {
	return &BadgeConfig{
		DirectoryPath: "/directory",
		CacheTTL:      30 * time.Second,
	}
}

// badgeService implements BadgeService
type badgeService struct {
	badges    repositories.BadgeRepository
	images    repositories.ImageRepository
	issuer    issuer.Client
	cache     cache.Cache
	imageHost ImageHost
	metrics   *TransitionMetrics
	config    *BadgeConfig
	logger    *zap.Logger

	readers        map[string]badgeReader
	fallbackReader badgeReader
}

// NewBadgeService creates the badge lifecycle service. imageHost may be nil,
// in which case published images are sent inline.
func NewBadgeService(
	badges repositories.BadgeRepository,
	images repositories.ImageRepository,
	client issuer.Client,
	readCache cache.Cache,
	imageHost ImageHost,
	metrics *TransitionMetrics,
	config *BadgeConfig,
	logger *zap.Logger,
) BadgeService {
	if config == nil {
		config = DefaultBadgeConfig()
	}
	if readCache == nil {
		readCache = cache.Noop{}
	}
	if metrics == nil {
		metrics = &TransitionMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	drafts := &localDraftReader{badges: badges}
	published := &remotePublishedReader{
		client:  client,
		cache:   readCache,
		ttl:     config.CacheTTL,
		metrics: metrics,
		logger:  logger,
	}

	return &badgeService{
		badges:    badges,
		images:    images,
		issuer:    client,
		cache:     readCache,
		imageHost: imageHost,
		metrics:   metrics,
		config:    config,
		logger:    logger,
		readers: map[string]badgeReader{
			"":               drafts,
			CategoryDraft:    drafts,
			CategoryTemplate: drafts,
		},
		fallbackReader: published,
	}
}

// ===============================
// ACCESS
// ===============================

// Resolve returns a badge in draft shape from whichever store owns the
// category. Unknown categories are treated as published.
func (s *badgeService) Resolve(ctx context.Context, identifier, category string) (*models.Badge, error) {
	reader, ok := s.readers[category]
	if !ok {
		reader = s.fallbackReader
	}
	return reader.read(ctx, identifier)
}

// GetImage returns the stored image of a draft, or nil when the draft has
// none
func (s *badgeService) GetImage(ctx context.Context, badgeID int64) (*models.Image, error) {
	badge, err := s.badges.GetByID(ctx, badgeID, models.GetOptions{Relationships: true})
	if err != nil {
		return nil, NewPersistenceError("failed to load badge", err).WithContext(&ErrorContext{
			Operation: "image",
			BadgeID:   badgeID,
		})
	}
	if badge == nil {
		return nil, BadgeNotFoundError(badgeID)
	}

	return badge.Image, nil
}

// ===============================
// LIFECYCLE TRANSITIONS
// ===============================

// Save persists the edit form, then replaces criteria and attaches the
// upload concurrently
func (s *badgeService) Save(ctx context.Context, req *SaveBadgeRequest) (*models.Badge, error) {
	start := time.Now()
	badge, err := s.save(ctx, req)
	s.metrics.observe(transitionSave, start, err)
	return badge, err
}

func (s *badgeService) save(ctx context.Context, req *SaveBadgeRequest) (*models.Badge, error) {
	if req == nil {
		return nil, NewValidationError("badge payload is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge payload", err)
	}

	draft, err := normalizeBadge(req)
	if err != nil {
		return nil, err
	}

	id, err := s.badges.Put(ctx, draft)
	if err != nil {
		errCtx := &ErrorContext{Operation: transitionSave, Step: StepPersist, BadgeID: draft.ID}
		if errors.Is(err, repositories.ErrBadgeNotFound) {
			return nil, BadgeNotFoundError(draft.ID).WithContext(errCtx)
		}
		s.logger.Error("Failed to persist badge", zap.Int64("badge_id", draft.ID), zap.Error(err))
		return nil, NewPersistenceError("failed to save badge", err).WithContext(errCtx)
	}

	row, err := s.refetch(ctx, id, models.GetOptions{}, transitionSave)
	if err != nil {
		return nil, err
	}

	criteria := normalizeCriteria(req.NumCriteria, req.Criteria)
	upload := selectUpload(req)

	// Both sub-writes run to completion; Wait reports the first failure.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.badges.SetCriteria(ctx, row.ID, criteria); err != nil {
			return NewPartialWriteError("failed to replace badge criteria", err).WithContext(&ErrorContext{
				Operation: transitionSave,
				Step:      StepCriteria,
				BadgeID:   row.ID,
			})
		}
		return nil
	})
	if upload != nil {
		g.Go(func() error {
			return s.attachImage(ctx, row, upload)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Badge save partially failed",
			zap.Int64("badge_id", row.ID),
			zap.String("step", GetServiceError(err).Step()),
			zap.Error(err),
		)
		return nil, err
	}

	saved, err := s.refetch(ctx, row.ID, models.GetOptions{Relationships: true}, transitionSave)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Badge saved",
		zap.Int64("badge_id", saved.ID),
		zap.Int("criteria", len(saved.Criteria)),
		zap.Bool("image_uploaded", upload != nil),
	)

	return saved, nil
}

// attachImage stores the upload for badge. A badge gets its image row once;
// later uploads overwrite that row in place.
func (s *badgeService) attachImage(ctx context.Context, badge *models.Badge, upload *UploadedFile) error {
	errCtx := &ErrorContext{Operation: transitionSave, Step: StepImage, BadgeID: badge.ID}

	data, mimeType, err := readUpload(upload)
	if err != nil {
		return NewPartialWriteError("failed to read uploaded image", err).WithContext(errCtx)
	}

	image := &models.Image{MimeType: mimeType, Data: data}
	if badge.HasImage() {
		image.ID = *badge.ImageID
	}

	imageID, err := s.images.Put(ctx, image)
	if err != nil {
		return NewPartialWriteError("failed to store badge image", err).WithContext(errCtx)
	}

	if badge.HasImage() {
		if imageID != *badge.ImageID {
			return NewPartialWriteError("image row changed identity on update", nil).WithContext(errCtx)
		}
		return nil
	}

	if err := s.badges.Update(ctx, &models.BadgeUpdate{ID: badge.ID, ImageID: &imageID}); err != nil {
		return NewPartialWriteError("failed to attach image to badge", err).WithContext(errCtx)
	}

	return nil
}

// Publish saves the latest edits and materializes the badge on the issuing
// service. Draft store writes are not reverted when a later step fails.
func (s *badgeService) Publish(ctx context.Context, badgeID int64, req *SaveBadgeRequest) (*TransitionResult, error) {
	start := time.Now()
	result, err := s.publish(ctx, badgeID, req)
	s.metrics.observe(transitionPublish, start, err)
	return result, err
}

func (s *badgeService) publish(ctx context.Context, badgeID int64, req *SaveBadgeRequest) (*TransitionResult, error) {
	if req == nil {
		return nil, NewValidationError("badge payload is required", nil)
	}

	form := *req
	formID, err := parseBadgeID(form.BadgeID)
	if err != nil {
		return nil, err
	}
	switch {
	case formID != 0 && badgeID != 0 && formID != badgeID:
		return nil, InvalidInputError("badgeId", "does not match the badge being published")
	case formID == 0 && badgeID != 0:
		form.BadgeID = strconv.FormatInt(badgeID, 10)
	}

	badge, err := s.save(ctx, &form)
	if err != nil {
		return nil, err
	}

	ext := issuer.ToExternal(badge)

	if s.imageHost != nil && badge.Image != nil {
		url, err := s.imageHost.Upload(ctx, ext.Slug, badge.Image)
		if err != nil {
			return nil, NewUpstreamRejectedError("failed to host badge image", err).WithContext(&ErrorContext{
				Operation: transitionPublish,
				Step:      StepImageMirror,
				BadgeID:   badge.ID,
				Slug:      ext.Slug,
			})
		}
		ext.ImageURL = url
		ext.Image = ""
	}

	if err := s.issuer.CreateBadge(ctx, ext); err != nil {
		s.logger.Warn("Issuing service rejected badge",
			zap.Int64("badge_id", badge.ID),
			zap.String("slug", ext.Slug),
			zap.Error(err),
		)
		return nil, NewUpstreamRejectedError("issuing service rejected badge", err).WithContext(&ErrorContext{
			Operation: transitionPublish,
			Step:      StepRemoteCreate,
			BadgeID:   badge.ID,
			Slug:      ext.Slug,
		})
	}

	published := true
	if err := s.badges.Update(ctx, &models.BadgeUpdate{ID: badge.ID, Published: &published, Slug: &ext.Slug}); err != nil {
		s.logger.Error("Badge created remotely but not marked published",
			zap.Int64("badge_id", badge.ID),
			zap.String("slug", ext.Slug),
			zap.Error(err),
		)
		return nil, NewPersistenceError("failed to mark badge published", err).WithContext(&ErrorContext{
			Operation: transitionPublish,
			Step:      StepMarkPublished,
			BadgeID:   badge.ID,
			Slug:      ext.Slug,
		})
	}

	s.invalidate(ctx, ext.Slug)

	s.logger.Info("Badge published",
		zap.Int64("badge_id", badge.ID),
		zap.String("slug", ext.Slug),
	)

	return &TransitionResult{Location: s.location(CategoryPublished)}, nil
}

// Archive flags a published badge as archived on the issuing service. The
// draft store is not touched.
func (s *badgeService) Archive(ctx context.Context, slug string) error {
	start := time.Now()
	err := s.archive(ctx, slug)
	s.metrics.observe(transitionArchive, start, err)
	return err
}

func (s *badgeService) archive(ctx context.Context, slug string) error {
	ext, err := fetchPublished(ctx, s.issuer, slug, transitionArchive)
	if err != nil {
		return err
	}

	// the update path is built from the record's slug, which the issuing
	// service may omit from its read body
	if ext.Slug == "" {
		ext.Slug = slug
	}
	ext.Archived = true

	if err := s.issuer.UpdateBadge(ctx, ext); err != nil {
		return NewUpstreamRejectedError("issuing service rejected archive", err).WithContext(&ErrorContext{
			Operation: transitionArchive,
			Step:      StepRemoteUpdate,
			Slug:      slug,
		})
	}

	s.invalidate(ctx, slug)

	s.logger.Info("Badge archived", zap.String("slug", slug))
	return nil
}

// Copy creates a new draft from a published badge
func (s *badgeService) Copy(ctx context.Context, slug string) (*TransitionResult, error) {
	start := time.Now()
	result, err := s.copy(ctx, slug)
	s.metrics.observe(transitionCopy, start, err)
	return result, err
}

func (s *badgeService) copy(ctx context.Context, slug string) (*TransitionResult, error) {
	ext, err := fetchPublished(ctx, s.issuer, slug, transitionCopy)
	if err != nil {
		return nil, err
	}

	draft := issuer.ToLocal(ext)
	draft.ID = 0
	draft.Slug = ""
	draft.Published = false
	draft.Archived = false
	draft.ImageURL = ""

	id, err := s.badges.Put(ctx, draft)
	if err != nil {
		return nil, NewPersistenceError("failed to insert badge copy", err).WithContext(&ErrorContext{
			Operation: transitionCopy,
			Step:      StepInsertCopy,
			Slug:      slug,
		})
	}

	for _, c := range draft.Criteria {
		c.ID = nil
	}
	if err := s.badges.SetCriteria(ctx, id, draft.Criteria); err != nil {
		return nil, NewPartialWriteError("failed to copy badge criteria", err).WithContext(&ErrorContext{
			Operation: transitionCopy,
			Step:      StepCriteria,
			BadgeID:   id,
			Slug:      slug,
		})
	}

	s.logger.Info("Badge copied to draft",
		zap.String("source_slug", slug),
		zap.Int64("badge_id", id),
	)

	return &TransitionResult{Location: s.location(CategoryDraft)}, nil
}

// ===============================
// ISSUING
// ===============================

// IssueByEmail asks the issuing service to award a badge to an email
// address. Award failures are only returned when configured to surface.
func (s *badgeService) IssueByEmail(ctx context.Context, req *IssueByEmailRequest) (*TransitionResult, error) {
	start := time.Now()

	if req == nil {
		return nil, NewValidationError("issue request is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid issue request", err)
	}

	award := &issuer.AwardRequest{
		Learner: issuer.Learner{Email: req.Email},
		Badge:   req.Slug,
	}

	var awardErr error
	if err := s.issuer.GrantAward(ctx, req.Slug, award); err != nil {
		awardErr = NewUpstreamRejectedError("failed to grant badge award", err).WithContext(&ErrorContext{
			Operation: transitionIssueByEmail,
			Step:      StepGrantAward,
			Slug:      req.Slug,
		})
		s.logger.Warn("Badge award failed",
			zap.String("slug", req.Slug),
			zap.Bool("surfaced", s.config.SurfaceAwardErrors),
			zap.Error(err),
		)
	}
	s.metrics.observe(transitionIssueByEmail, start, awardErr)

	if awardErr != nil && s.config.SurfaceAwardErrors {
		return nil, awardErr
	}

	return &TransitionResult{Location: s.config.DirectoryPath}, nil
}

// ===============================
// HELPERS
// ===============================

func (s *badgeService) refetch(ctx context.Context, id int64, opts models.GetOptions, operation string) (*models.Badge, error) {
	errCtx := &ErrorContext{Operation: operation, Step: StepRefetch, BadgeID: id}

	badge, err := s.badges.GetByID(ctx, id, opts)
	if err != nil {
		return nil, NewPersistenceError("failed to reload badge", err).WithContext(errCtx)
	}
	if badge == nil {
		return nil, NewPersistenceError("badge missing after write", repositories.ErrBadgeNotFound).WithContext(errCtx)
	}

	return badge, nil
}

func (s *badgeService) invalidate(ctx context.Context, slug string) {
	if err := s.cache.Delete(ctx, publishedCacheKey(slug)); err != nil {
		s.logger.Warn("Failed to invalidate published badge cache",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}
}

func (s *badgeService) location(category string) string {
	return s.config.DirectoryPath + "?category=" + category
}
