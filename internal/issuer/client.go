package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"badgekit/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Client is the set of issuing service operations the badge lifecycle needs
type Client interface {
	GetBadge(ctx context.Context, slug string) (*ExternalBadge, error)
	CreateBadge(ctx context.Context, badge *ExternalBadge) error
	UpdateBadge(ctx context.Context, badge *ExternalBadge) error
	GrantAward(ctx context.Context, slug string, award *AwardRequest) error
}

const (
	maxResponseBytes = 4 << 20
	readRetries      = 2
)

// HTTPClient talks to the issuing service REST API with JWT-signed requests
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *requestSigner
	logger     *zap.Logger
}

// NewHTTPClient creates an issuing service client from configuration
func NewHTTPClient(cfg *config.IssuerConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPClient{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		signer: newRequestSigner(cfg.Key, cfg.Secret),
		logger: logger.Named("issuer"),
	}
}

// GetBadge fetches a published badge by slug. Transient failures are retried.
func (c *HTTPClient) GetBadge(ctx context.Context, slug string) (*ExternalBadge, error) {
	path := "/v2/badges/" + url.PathEscape(slug)

	var envelope badgeEnvelope
	operation := func() error {
		err := c.do(ctx, http.MethodGet, path, nil, &envelope)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), readRetries),
		ctx,
	)
	err := backoff.RetryNotify(operation, b, func(err error, d time.Duration) {
		c.logger.Warn("Issuer read failed, retrying",
			zap.String("slug", slug),
			zap.Error(err),
			zap.Duration("backoff", d),
		)
	})
	if err != nil {
		return nil, err
	}

	if envelope.Badge == nil {
		return nil, fmt.Errorf("issuer returned empty badge for %q: %w", slug, ErrNotFound)
	}

	return envelope.Badge, nil
}

// CreateBadge materializes a badge on the issuing service
func (c *HTTPClient) CreateBadge(ctx context.Context, badge *ExternalBadge) error {
	return c.do(ctx, http.MethodPost, "/v2/badges", badgeEnvelope{Badge: badge}, nil)
}

// UpdateBadge replaces a published badge on the issuing service
func (c *HTTPClient) UpdateBadge(ctx context.Context, badge *ExternalBadge) error {
	path := "/v2/badges/" + url.PathEscape(badge.Slug)
	return c.do(ctx, http.MethodPut, path, badgeEnvelope{Badge: badge}, nil)
}

// GrantAward awards the badge identified by slug to a learner
func (c *HTTPClient) GrantAward(ctx context.Context, slug string, award *AwardRequest) error {
	path := "/v2/badges/" + url.PathEscape(slug) + "/awards"
	return c.do(ctx, http.MethodPost, path, award, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode issuer request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build issuer request: %w", err)
	}

	token, err := c.signer.sign(method, path, body)
	if err != nil {
		return fmt.Errorf("failed to sign issuer request: %w", err)
	}

	req.Header.Set("Authorization", `JWT token="`+token+`"`)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("issuer %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read issuer response: %w", err)
	}

	c.logger.Debug("Issuer request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
		}
		var eb errorBody
		if json.Unmarshal(payload, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		}
		return apiErr
	}

	if out == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode issuer response: %w", err)
	}

	return nil
}
