package badges

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"badgekit/internal/config"
	"badgekit/internal/response"
	"badgekit/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

// editViewPath is where a saved draft is edited next
const editViewPath = "/badge/%d/edit"

// defaultMaxUploadBytes bounds request bodies when no limit is configured
const defaultMaxUploadBytes = 10 << 20

// Form fields carrying the badge image uploads
const (
	uploadImageField = "uploadImage"
	studioImageField = "studioImage"
)

// BadgeController handles badge lifecycle endpoints
type BadgeController struct {
	badges          services.BadgeService
	responseBuilder *response.Builder
	decoder         *schema.Decoder
	config          *config.ServerConfig
	logger          *zap.Logger
}

// NewBadgeController creates a badge controller
func NewBadgeController(
	badgeService services.BadgeService,
	responseBuilder *response.Builder,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *BadgeController {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &BadgeController{
		badges:          badgeService,
		responseBuilder: responseBuilder,
		decoder:         decoder,
		config:          cfg,
		logger:          logger,
	}
}

// Routes returns the badge routes, to be mounted under /api/v1/badges
func (c *BadgeController) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", c.SaveBadge)
	r.Route("/{badgeID}", func(r chi.Router) {
		r.Get("/", c.GetBadge)
		r.Get("/image", c.GetBadgeImage)
		r.Post("/publish", c.PublishBadge)
		r.Post("/archive", c.ArchiveBadge)
		r.Post("/copy", c.CopyBadge)
		r.Get("/issue", c.RenderIssue)
		r.Post("/issue/email", c.IssueByEmail)
	})

	return r
}

// ===============================
// READS
// ===============================

// GetBadge handles GET /api/v1/badges/{badgeID}?category=
func (c *BadgeController) GetBadge(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "badgeID")
	category := r.URL.Query().Get("category")

	badge, err := c.badges.Resolve(r.Context(), identifier, category)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, badge)
}

// RenderIssue handles GET /api/v1/badges/{badgeID}/issue
func (c *BadgeController) RenderIssue(w http.ResponseWriter, r *http.Request) {
	badge, err := c.badges.Resolve(r.Context(), chi.URLParam(r, "badgeID"), services.CategoryPublished)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, badge)
}

// GetBadgeImage handles GET /api/v1/badges/{badgeID}/image
func (c *BadgeController) GetBadgeImage(w http.ResponseWriter, r *http.Request) {
	badgeID, err := routeBadgeID(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	image, err := c.badges.GetImage(r.Context(), badgeID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if image == nil || len(image.Data) == 0 {
		c.responseBuilder.WriteRedirect(w, r, c.config.DefaultBadgeImageURL, http.StatusFound)
		return
	}

	c.responseBuilder.WriteBlob(w, r, image.MimeType, image.Data)
}

// ===============================
// TRANSITIONS
// ===============================

// SaveBadge handles POST /api/v1/badges
func (c *BadgeController) SaveBadge(w http.ResponseWriter, r *http.Request) {
	req, err := c.decodeBadgeForm(w, r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	badge, err := c.badges.Save(r.Context(), req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, &services.SaveResult{
		Badge:    badge,
		Location: fmt.Sprintf(editViewPath, badge.ID),
	})
}

// PublishBadge handles POST /api/v1/badges/{badgeID}/publish
func (c *BadgeController) PublishBadge(w http.ResponseWriter, r *http.Request) {
	badgeID, err := routeBadgeID(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	req, err := c.decodeBadgeForm(w, r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	result, err := c.badges.Publish(r.Context(), badgeID, req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// ArchiveBadge handles POST /api/v1/badges/{badgeID}/archive
func (c *BadgeController) ArchiveBadge(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "badgeID")

	if err := c.badges.Archive(r.Context(), slug); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, nil)
}

// CopyBadge handles POST /api/v1/badges/{badgeID}/copy
func (c *BadgeController) CopyBadge(w http.ResponseWriter, r *http.Request) {
	result, err := c.badges.Copy(r.Context(), chi.URLParam(r, "badgeID"))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// IssueByEmail handles POST /api/v1/badges/{badgeID}/issue/email
func (c *BadgeController) IssueByEmail(w http.ResponseWriter, r *http.Request) {
	var req services.IssueByEmailRequest
	if err := c.decodeInto(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.Slug = chi.URLParam(r, "badgeID")

	result, err := c.badges.IssueByEmail(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// ===============================
// REQUEST DECODING
// ===============================

// decodeBadgeForm reads the edit form and any image uploads
func (c *BadgeController) decodeBadgeForm(w http.ResponseWriter, r *http.Request) (*services.SaveBadgeRequest, error) {
	var req services.SaveBadgeRequest
	if err := c.decodeInto(w, r, &req); err != nil {
		return nil, err
	}

	if r.MultipartForm != nil {
		req.UploadImage = uploadedFile(r.MultipartForm, uploadImageField)
		req.StudioImage = uploadedFile(r.MultipartForm, studioImageField)
	}

	return &req, nil
}

// decodeInto fills dst from a JSON, multipart or urlencoded body
func (c *BadgeController) decodeInto(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	limit := c.config.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			c.logger.Warn("Failed to decode JSON request body", zap.Error(err))
			return services.NewValidationError("Invalid request body format", err)
		}
		return nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(limit); err != nil {
			c.logger.Warn("Failed to parse multipart form", zap.Error(err))
			return services.NewValidationError("Invalid multipart form", err)
		}

	default:
		if err := r.ParseForm(); err != nil {
			c.logger.Warn("Failed to parse form", zap.Error(err))
			return services.NewValidationError("Invalid form body", err)
		}
	}

	if err := c.decoder.Decode(dst, normalizeFormKeys(r.PostForm)); err != nil {
		c.logger.Warn("Failed to decode form values", zap.Error(err))
		return services.NewValidationError("Invalid form values", err)
	}

	return nil
}

// normalizeFormKeys rewrites bracketed keys such as criteria[0][note] and
// tags[] into the dotted form gorilla/schema expects
func normalizeFormKeys(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		key = strings.TrimSuffix(key, "[]")
		key = strings.ReplaceAll(key, "][", ".")
		key = strings.ReplaceAll(key, "[", ".")
		key = strings.TrimSuffix(key, "]")
		out[key] = append(out[key], vals...)
	}
	return out
}

func uploadedFile(form *multipart.Form, field string) *services.UploadedFile {
	headers := form.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return nil
	}

	header := headers[0]
	return &services.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

func routeBadgeID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "badgeID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.InvalidInputError("badgeID", "must be a positive integer")
	}
	return id, nil
}
