// Package licenseapi talks to the license backend over HTTPS.
package licenseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"slidecli/internal/license"
	"slidecli/internal/updater"
)

const userAgent = "slidecli-license-client/1.0"

// validateRequest is the wire payload for both validation endpoints.
type validateRequest struct {
	Action     string `json:"action"`
	LicenseKey string `json:"license_key"`
	RequestID  string `json:"request_id"`
	WithUpdate bool   `json:"with_update,omitempty"`
}

// validateResponse is the backend's answer.
type validateResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"` // valid|invalid|expired
	Message string `json:"message,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	Plan      string `json:"plan,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`

	Update *updater.Manifest `json:"update,omitempty"`
}

// HTTPClient implements license.Client against a JSON endpoint. Connectivity
// failures, timeouts included, surface as *license.TransportError so the
// manager can tell "unreachable" from "rejected".
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the given backend endpoint with a
// bounded per-request timeout.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "license_client")),
	}
}

// ValidateLicense checks one key against the backend.
func (c *HTTPClient) ValidateLicense(ctx context.Context, key string) (license.Outcome, error) {
	outcome, _, err := c.validate(ctx, key, false)
	return outcome, err
}

// ValidateLicenseWithUpdate checks one key and asks the backend to bundle a
// release manifest when one is available.
func (c *HTTPClient) ValidateLicenseWithUpdate(ctx context.Context, key string) (license.Outcome, *updater.Manifest, error) {
	return c.validate(ctx, key, true)
}

func (c *HTTPClient) validate(ctx context.Context, key string, withUpdate bool) (license.Outcome, *updater.Manifest, error) {
	reqID := uuid.NewString()

	payload, err := json.Marshal(validateRequest{
		Action:     "validate",
		LicenseKey: key,
		RequestID:  reqID,
		WithUpdate: withUpdate,
	})
	if err != nil {
		return license.Outcome{}, nil, fmt.Errorf("failed to encode validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return license.Outcome{}, nil, fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("validation request failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		return license.Outcome{}, nil, &license.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return license.Outcome{}, nil, &license.TransportError{Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return license.Outcome{}, nil, &license.TransportError{
			Err: fmt.Errorf("backend returned status %d", resp.StatusCode),
		}
	}

	var vr validateResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return license.Outcome{}, nil, fmt.Errorf("failed to parse validation response: %w", err)
	}

	outcome := c.mapResponse(vr)

	c.logger.Debug("validation response received",
		slog.String("request_id", reqID),
		slog.String("status", vr.Status),
		slog.Bool("update_bundled", vr.Update != nil),
	)

	return outcome, vr.Update, nil
}

// mapResponse converts a wire response into a tagged outcome.
func (c *HTTPClient) mapResponse(vr validateResponse) license.Outcome {
	switch {
	case vr.Success && vr.Status == "valid":
		return license.OnlineValid(vr.UserID, license.ParsePlan(vr.Plan), parseExpiry(vr.ExpiresAt))
	case vr.Status == "expired":
		return license.ExpiredLicense(vr.Message)
	default:
		return license.InvalidLicense(vr.Message)
	}
}

// parseExpiry accepts RFC3339 or date-only, matching what the backend sends.
func parseExpiry(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
