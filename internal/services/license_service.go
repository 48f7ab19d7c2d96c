// Package services provides the business logic layer between the HTTP
// transport and the license engine.
package services

import (
	"context"
	"log/slog"
	"time"

	"slidecli/internal/entitlement"
	"slidecli/internal/infrastructure"
	"slidecli/internal/license"
	"slidecli/internal/updater"
)

// LicenseService exposes license operations to the transport layer.
type LicenseService interface {
	GetStatus(ctx context.Context) (*StatusResponse, error)
	Activate(ctx context.Context, key string) (*ActivationResponse, error)
	Features(ctx context.Context) (*FeaturesResponse, error)
	CheckFeature(ctx context.Context, feature string) (license.Decision, error)
	CheckObjectLimit(ctx context.Context, count int) bool
	PendingUpdate(ctx context.Context) *updater.Manifest
	ApplyPendingUpdate(ctx context.Context) error
}

// StatusResponse is the standardized license status payload.
type StatusResponse struct {
	LicenseStatus  string     `json:"license_status"` // active|degraded|expired|not_activated|blocked
	IsValid        bool       `json:"is_valid"`
	AccessLevel    string     `json:"access_level"`
	PlanType       string     `json:"plan_type"`
	Message        string     `json:"message"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	LastValidation *time.Time `json:"last_validation,omitempty"`
	LicenseKey     string     `json:"license_key,omitempty"` // masked, display only
	TraceID        string     `json:"trace_id"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ActivationResponse is the result of a key activation attempt.
type ActivationResponse struct {
	Success   bool      `json:"success"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	PlanType  string    `json:"plan_type,omitempty"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// FeatureEntry describes one gated feature and its availability right now.
type FeatureEntry struct {
	Feature       string `json:"feature"`
	DisplayName   string `json:"display_name"`
	RequiredLevel string `json:"required_level"`
	Available     bool   `json:"available"`
}

// FeaturesResponse lists every gated feature with availability.
type FeaturesResponse struct {
	AccessLevel string         `json:"access_level"`
	Features    []FeatureEntry `json:"features"`
	TraceID     string         `json:"trace_id"`
}

type licenseService struct {
	manager  *license.Manager
	registry *entitlement.Registry
	logger   *slog.Logger
}

// NewLicenseService creates the service over an initialized manager.
func NewLicenseService(manager *license.Manager, registry *entitlement.Registry, logger *slog.Logger) LicenseService {
	return &licenseService{
		manager:  manager,
		registry: registry,
		logger:   logger.With(slog.String("service", "license")),
	}
}

func (s *licenseService) GetStatus(ctx context.Context) (*StatusResponse, error) {
	status := s.manager.CurrentStatus()

	resp := &StatusResponse{
		LicenseStatus:  statusLabel(status),
		IsValid:        status.IsValid,
		AccessLevel:    status.Level.String(),
		PlanType:       status.PlanType,
		Message:        status.Message,
		ExpiryDate:     status.ExpiryDate,
		LastValidation: status.LastValidation,
		TraceID:        infrastructure.TraceIDFromContext(ctx),
		Timestamp:      time.Now(),
	}

	if masked, err := s.manager.MaskedKey(); err == nil {
		resp.LicenseKey = masked
	}

	return resp, nil
}

func (s *licenseService) Activate(ctx context.Context, key string) (*ActivationResponse, error) {
	outcome := s.manager.SetLicenseKey(ctx, key)

	s.logger.InfoContext(ctx, "activation attempt completed",
		slog.String("outcome", string(outcome.Tag)),
		slog.String("level", outcome.Level.String()),
	)

	return &ActivationResponse{
		Success:   outcome.IsSuccess(),
		Outcome:   string(outcome.Tag),
		Message:   outcome.Message,
		PlanType:  outcome.Plan.String(),
		TraceID:   infrastructure.TraceIDFromContext(ctx),
		Timestamp: time.Now(),
	}, nil
}

func (s *licenseService) Features(ctx context.Context) (*FeaturesResponse, error) {
	status := s.manager.CurrentStatus()

	reqs := s.registry.Requirements()
	entries := make([]FeatureEntry, 0, len(reqs))
	for _, req := range reqs {
		entries = append(entries, FeatureEntry{
			Feature:       req.Feature,
			DisplayName:   req.DisplayName,
			RequiredLevel: req.Required.String(),
			Available:     s.manager.IsFeatureAllowed(req.Feature),
		})
	}

	return &FeaturesResponse{
		AccessLevel: status.Level.String(),
		Features:    entries,
		TraceID:     infrastructure.TraceIDFromContext(ctx),
	}, nil
}

func (s *licenseService) CheckFeature(ctx context.Context, feature string) (license.Decision, error) {
	return s.manager.CheckFeatureAccess(feature)
}

func (s *licenseService) CheckObjectLimit(ctx context.Context, count int) bool {
	return s.manager.IsWithinObjectLimit(count)
}

func (s *licenseService) PendingUpdate(ctx context.Context) *updater.Manifest {
	return s.manager.PendingUpdate()
}

func (s *licenseService) ApplyPendingUpdate(ctx context.Context) error {
	return s.manager.ApplyPendingUpdate()
}

// statusLabel maps a status snapshot to its API label.
func statusLabel(status license.Status) string {
	switch status.Source {
	case license.TagOnlineValid:
		return "active"
	case license.TagOfflineGrace:
		return "degraded"
	case license.TagExpired:
		return "expired"
	case license.TagNoLicense, "":
		return "not_activated"
	default:
		return "blocked"
	}
}
