package issuer

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by errors for badges the issuing service does not know
var ErrNotFound = errors.New("badge not found on issuing service")

// ExternalBadge is the issuing service's wire representation of a badge
type ExternalBadge struct {
	ID                  int64               `json:"id,omitempty"`
	Slug                string              `json:"slug"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Tags                []string            `json:"tags"`
	IssuerURL           string              `json:"issuerUrl,omitempty"`
	EarnerDescription   string              `json:"earnerDescription,omitempty"`
	ConsumerDescription string              `json:"consumerDescription,omitempty"`
	RubricURL           string              `json:"rubricUrl,omitempty"`
	TimeValue           int                 `json:"timeValue"`
	TimeUnits           string              `json:"timeUnits,omitempty"`
	Limit               int                 `json:"limit"`
	Unique              bool                `json:"unique"`
	MultiClaimCode      string              `json:"multiClaimCode,omitempty"`
	Archived            bool                `json:"archived"`
	ImageURL            string              `json:"imageUrl,omitempty"`
	Image               string              `json:"image,omitempty"` // data: URI
	Criteria            []ExternalCriterion `json:"criteria"`
}

// ExternalCriterion is one criterion in the issuing service's format
type ExternalCriterion struct {
	ID          int64  `json:"id,omitempty"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Note        string `json:"note,omitempty"`
}

// Learner identifies the recipient of an award
type Learner struct {
	Email string `json:"email"`
}

// AwardRequest asks the issuing service to grant a badge to a learner
type AwardRequest struct {
	Learner Learner `json:"learner"`
	Badge   string  `json:"badge"`
}

type badgeEnvelope struct {
	Badge *ExternalBadge `json:"badge"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is returned for any non-2xx response from the issuing service
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("issuer %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is lets a 404 response match ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether retrying the request could succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
