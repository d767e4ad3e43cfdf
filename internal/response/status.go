package response

import (
	"net/http"

	"go.uber.org/zap"
)

// ===============================
// REDIRECT HELPERS
// ===============================

// IsRedirect checks if status code indicates redirect (3xx)
func IsRedirect(code int) bool {
	return code >= 300 && code < 400
}

// WriteRedirect writes a redirect response
func (b *Builder) WriteRedirect(w http.ResponseWriter, r *http.Request, url string, code int) {
	if !IsRedirect(code) {
		code = http.StatusFound
	}
	http.Redirect(w, r, url, code)
}

// WriteSeeOther writes a see other redirect (303)
func (b *Builder) WriteSeeOther(w http.ResponseWriter, r *http.Request, url string) {
	b.WriteRedirect(w, r, url, http.StatusSeeOther)
}

// ===============================
// BINARY RESPONSES
// ===============================

// WriteBlob writes raw bytes with the given content type
func (b *Builder) WriteBlob(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		b.logger.Debug("Failed to write response body", zap.Error(err))
	}
}

// ===============================
// HEALTH CHECK RESPONSES
// ===============================

// WriteHealthCheck writes a health check response, 503 unless healthy
func (b *Builder) WriteHealthCheck(w http.ResponseWriter, r *http.Request, status string, health interface{}) {
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	b.WriteJSON(w, r, b.Success(r.Context(), health), code)
}
