package issuer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"badgekit/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "s3cret"

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(&config.IssuerConfig{
		URL:     server.URL,
		Key:     "master",
		Secret:  testSecret,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func parseToken(t *testing.T, r *http.Request) jwt.MapClaims {
	t.Helper()
	header := r.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, `JWT token="`), "unexpected auth header %q", header)
	raw := strings.TrimSuffix(strings.TrimPrefix(header, `JWT token="`), `"`)

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestHTTPClient_GetBadge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/badges/reading-badge", r.URL.Path)

		claims := parseToken(t, r)
		assert.Equal(t, "master", claims["key"])
		assert.Equal(t, "GET", claims["method"])
		assert.Equal(t, "/v2/badges/reading-badge", claims["path"])
		assert.NotContains(t, claims, "body")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"badge":{"id":7,"slug":"reading-badge","name":"Reader","timeValue":3,
			"criteria":[{"id":1,"description":"Read a book","required":true}]}}`)
	})

	badge, err := client.GetBadge(context.Background(), "reading-badge")
	require.NoError(t, err)
	assert.Equal(t, int64(7), badge.ID)
	assert.Equal(t, "Reader", badge.Name)
	assert.Equal(t, 3, badge.TimeValue)
	require.Len(t, badge.Criteria, 1)
	assert.True(t, badge.Criteria[0].Required)
}

func TestHTTPClient_GetBadge_NotFound(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"ResourceNotFound","message":"no such badge"}`)
	})

	_, err := client.GetBadge(context.Background(), "reading-badge")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "no such badge", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestHTTPClient_GetBadge_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"badge":{"slug":"reading-badge","name":"Reader"}}`)
	})

	badge, err := client.GetBadge(context.Background(), "reading-badge")
	require.NoError(t, err)
	assert.Equal(t, "Reader", badge.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClient_CreateBadge_SignsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/badges", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		sum := sha256.Sum256(body)
		claims := parseToken(t, r)
		bodyClaim, ok := claims["body"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "sha256", bodyClaim["alg"])
		assert.Equal(t, hex.EncodeToString(sum[:]), bodyClaim["hash"])

		var envelope struct {
			Badge ExternalBadge `json:"badge"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "reader", envelope.Badge.Slug)

		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateBadge(context.Background(), &ExternalBadge{Slug: "reader", Name: "Reader"})
	require.NoError(t, err)
}

func TestHTTPClient_CreateBadge_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"ResourceConflict","message":"slug taken"}`)
	})

	err := client.CreateBadge(context.Background(), &ExternalBadge{Slug: "reader"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "ResourceConflict", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "slug taken")
}

func TestHTTPClient_UpdateAndAward(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	require.NoError(t, client.UpdateBadge(ctx, &ExternalBadge{Slug: "reader", Archived: true}))
	require.NoError(t, client.GrantAward(ctx, "reader", &AwardRequest{
		Learner: Learner{Email: "learner@example.org"},
		Badge:   "reader",
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"PUT /v2/badges/reader",
		"POST /v2/badges/reader/awards",
	}, seen)
}
