package license

import (
	"context"
	"time"

	"slidecli/internal/updater"
)

// Store is the persistent license cache consumed by the Manager. Writes are
// whole-record replacements; Load returns ErrNoLicense when nothing is cached.
type Store interface {
	Load() (*Record, error)
	Save(record Record) error
	UpdateLastValidation(ts time.Time) error
	MaskedKey() (string, error)
}

// Client is the validation transport. Implementations must return a
// *TransportError for connectivity failures so the Manager can distinguish
// "backend unreachable" from "backend said no".
type Client interface {
	ValidateLicense(ctx context.Context, key string) (Outcome, error)
	ValidateLicenseWithUpdate(ctx context.Context, key string) (Outcome, *updater.Manifest, error)
}

// UpdateService is the binary-update collaborator. Downloads triggered from
// the revalidation path are fire-and-forget; their failures never reach the
// entitlement decision.
type UpdateService interface {
	CheckForUpdate(manifest *updater.Manifest) bool
	DownloadUpdate(ctx context.Context, manifest *updater.Manifest) error
	HasPendingUpdate() bool
	PendingUpdate() *updater.Manifest
	ApplyPendingUpdate() error
}

// FeatureRegistry answers entitlement queries for the Manager.
type FeatureRegistry interface {
	IsFeatureAvailable(feature string, level AccessLevel) bool
	RequiredLevel(feature string) AccessLevel
}

// Clock abstracts time for deterministic grace-period tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// TransportError marks a failure to reach the license backend at all, as
// opposed to a definitive answer from it. The Manager converts it to the
// NetworkError outcome and, when history exists, falls back to offline grace.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "license backend unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
