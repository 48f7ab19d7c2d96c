package license

import (
	"fmt"
	"time"
)

// Default grace windows, in days since the last successful online validation.
const (
	DefaultFullGraceDays    = 3
	DefaultLimitedGraceDays = 7
)

// EvaluateGrace decides what degraded access to extend while the license
// backend is unreachable. It is a pure function of its inputs:
//
//   - no validation history at all -> Invalid (zero history earns zero trust)
//   - elapsed <= fullDays          -> OfflineGrace(Pro)
//   - elapsed <= limitedDays       -> OfflineGrace(Free)
//   - beyond limitedDays           -> Expired
//
// Elapsed time is wall-clock, not calendar days, so fractional days matter at
// the boundaries. The remaining-days figure in the message is rounded toward
// zero.
func EvaluateGrace(now time.Time, lastValidation *time.Time, fullDays, limitedDays int) Outcome {
	if lastValidation == nil {
		return InvalidLicense("No validation history; cannot grant offline access")
	}

	elapsed := now.Sub(*lastValidation).Hours() / 24

	switch {
	case elapsed <= float64(fullDays):
		return OfflineGrace(LevelPro, int(float64(fullDays)-elapsed))
	case elapsed <= float64(limitedDays):
		return OfflineGrace(LevelFree, int(float64(limitedDays)-elapsed))
	default:
		return ExpiredLicense(fmt.Sprintf("Offline grace period expired %.0f day(s) ago", elapsed-float64(limitedDays)))
	}
}
