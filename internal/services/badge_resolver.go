package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"badgekit/internal/cache"
	"badgekit/internal/issuer"
	"badgekit/internal/models"
	"badgekit/internal/repositories"

	"go.uber.org/zap"
)

const publishedCacheKeyPrefix = "badge:published:"

func publishedCacheKey(slug string) string {
	return publishedCacheKeyPrefix + slug
}

// badgeReader loads one badge in draft shape from a single backing store
type badgeReader interface {
	read(ctx context.Context, identifier string) (*models.Badge, error)
}

// ===============================
// LOCAL DRAFT READER
// ===============================

// localDraftReader reads drafts and templates from the draft store,
// addressing them by numeric ID
type localDraftReader struct {
	badges repositories.BadgeRepository
}

func (r *localDraftReader) read(ctx context.Context, identifier string) (*models.Badge, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(identifier), 10, 64)
	if err != nil || id <= 0 {
		return nil, BadgeNotFoundError(identifier)
	}

	badge, err := r.badges.GetByID(ctx, id, models.GetOptions{Relationships: true})
	if err != nil {
		return nil, NewPersistenceError("failed to load badge", err).WithContext(&ErrorContext{
			Operation: "resolve",
			BadgeID:   id,
		})
	}
	if badge == nil {
		return nil, BadgeNotFoundError(id)
	}

	return badge, nil
}

// ===============================
// REMOTE PUBLISHED READER
// ===============================

// remotePublishedReader reads published badges from the issuing service by
// slug, keeping a short-lived copy in the read cache
type remotePublishedReader struct {
	client  issuer.Client
	cache   cache.Cache
	ttl     time.Duration
	metrics *TransitionMetrics
	logger  *zap.Logger
}

func (r *remotePublishedReader) read(ctx context.Context, slug string) (*models.Badge, error) {
	if ext, ok := r.cached(ctx, slug); ok {
		return issuer.ToLocal(ext), nil
	}

	ext, err := fetchPublished(ctx, r.client, slug, "resolve")
	if err != nil {
		return nil, err
	}

	r.store(ctx, slug, ext)

	return issuer.ToLocal(ext), nil
}

func (r *remotePublishedReader) cached(ctx context.Context, slug string) (*issuer.ExternalBadge, bool) {
	data, err := r.cache.Get(ctx, publishedCacheKey(slug))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn("Published badge cache read failed",
				zap.String("slug", slug),
				zap.Error(err),
			)
		}
		r.metrics.cacheResult(false)
		return nil, false
	}

	var ext issuer.ExternalBadge
	if err := json.Unmarshal(data, &ext); err != nil {
		r.logger.Warn("Discarding unreadable cached badge",
			zap.String("slug", slug),
			zap.Error(err),
		)
		r.metrics.cacheResult(false)
		return nil, false
	}

	r.metrics.cacheResult(true)
	return &ext, true
}

func (r *remotePublishedReader) store(ctx context.Context, slug string, ext *issuer.ExternalBadge) {
	data, err := json.Marshal(ext)
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, publishedCacheKey(slug), data, r.ttl); err != nil {
		r.logger.Warn("Published badge cache write failed",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}
}

// fetchPublished reads a badge from the issuing service, mapping a missing
// slug to NotFound and any other failure to UpstreamUnavailable
func fetchPublished(ctx context.Context, client issuer.Client, slug, operation string) (*issuer.ExternalBadge, error) {
	ext, err := client.GetBadge(ctx, slug)
	if err == nil {
		return ext, nil
	}

	errCtx := &ErrorContext{Operation: operation, Step: StepRemoteFetch, Slug: slug}
	if errors.Is(err, issuer.ErrNotFound) {
		notFound := NewNotFoundError("badge not found")
		notFound.Cause = err
		return nil, notFound.WithContext(errCtx)
	}

	return nil, NewUpstreamUnavailableError("failed to fetch badge from issuing service", err).WithContext(errCtx)
}
