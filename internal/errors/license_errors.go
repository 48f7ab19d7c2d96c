package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// License-specific API errors.
var (
	ErrInvalidLicenseKey = New(http.StatusBadRequest, "INVALID_LICENSE_KEY", "The provided license key is invalid or malformed")
	ErrLicenseExpired    = New(http.StatusForbidden, "LICENSE_EXPIRED", "Your license has expired. Please renew to continue")
	ErrLicenseNotFound   = New(http.StatusNotFound, "LICENSE_NOT_FOUND", "No license key has been entered")
	ErrFeatureLocked     = New(http.StatusForbidden, "FEATURE_LOCKED", "Your current plan does not include this feature")
	ErrNetworkUnreached  = New(http.StatusServiceUnavailable, "NETWORK_ERROR", "Unable to reach the license server. Please check your connection")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs. The
// license endpoints use it for richer failure payloads.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens the extensions into the payload.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{
		"type":   pd.Type,
		"title":  pd.Title,
		"status": pd.Status,
	}
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates an RFC 7807 compliant error.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewFeatureLockedProblem builds the standard payload for a denied feature.
func NewFeatureLockedProblem(feature, requiredPlan, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusForbidden,
		"/errors/feature-locked",
		"Feature Not Available",
		fmt.Sprintf("The %s feature requires the %s plan.", feature, requiredPlan),
		fmt.Sprintf("/api/license/features#%s", traceID),
	).WithExtension("feature", feature).WithExtension("required_plan", requiredPlan)
}
