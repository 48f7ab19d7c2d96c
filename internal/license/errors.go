package license

import "errors"

// Sentinel errors for the validation paths. All of these are recoverable:
// the Manager converts them into a degraded Status rather than letting them
// escape to callers of the entitlement queries.
var (
	ErrNoLicense         = errors.New("no license key has been entered")
	ErrInvalidKey        = errors.New("invalid license key")
	ErrLicenseExpired    = errors.New("license expired")
	ErrGraceExpired      = errors.New("offline grace period expired")
	ErrNetworkUnreached  = errors.New("license backend unreachable")
	ErrNotInitialized    = errors.New("license manager not initialized")
	ErrValidationFailure = errors.New("license validation failed")
)

// InitError marks a construction-time failure of the Manager itself. It is
// the only fatal case: without a store and configuration no safe entitlement
// decision can be made.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return "license manager initialization failed at " + e.Stage + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }
