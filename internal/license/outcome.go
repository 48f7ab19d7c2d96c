package license

import (
	"fmt"
	"time"
)

// OutcomeTag classifies the result of a single validation attempt.
type OutcomeTag string

const (
	TagOnlineValid  OutcomeTag = "online_valid"
	TagOfflineGrace OutcomeTag = "offline_grace"
	TagInvalid      OutcomeTag = "invalid"
	TagExpired      OutcomeTag = "expired"
	TagNetworkError OutcomeTag = "network_error"
	TagNoLicense    OutcomeTag = "no_license"
	TagError        OutcomeTag = "error"
)

// Outcome is the tagged result of one license-check attempt. It is transient:
// the longer-lived view of the world is Status, built from an Outcome plus the
// cached record by BuildStatus. Outcomes are only constructed through the
// factory functions below so every tag carries internally consistent fields.
type Outcome struct {
	Tag     OutcomeTag
	Level   AccessLevel
	Message string

	UserID string
	Plan   Plan
	Expiry *time.Time
}

// IsSuccess reports whether the attempt established trust online.
func (o Outcome) IsSuccess() bool {
	return o.Tag == TagOnlineValid
}

// OnlineValid records a successful online validation.
func OnlineValid(userID string, plan Plan, expiry *time.Time) Outcome {
	return Outcome{
		Tag:     TagOnlineValid,
		Level:   plan.AccessLevel(),
		Message: fmt.Sprintf("License validated online (%s plan)", plan),
		UserID:  userID,
		Plan:    plan,
		Expiry:  expiry,
	}
}

// OfflineGrace records a degraded decision made without backend contact.
// level must be LevelPro (full grace) or LevelFree (limited grace).
func OfflineGrace(level AccessLevel, daysRemaining int) Outcome {
	return Outcome{
		Tag:     TagOfflineGrace,
		Level:   level,
		Message: fmt.Sprintf("Offline grace period: %s access, %d day(s) remaining", level, daysRemaining),
	}
}

// InvalidLicense records a key rejected by the backend or malformed input.
func InvalidLicense(reason string) Outcome {
	if reason == "" {
		reason = "License key is invalid"
	}
	return Outcome{Tag: TagInvalid, Level: LevelBlocked, Message: reason}
}

// ExpiredLicense records an exhausted grace window or backend-reported expiry.
func ExpiredLicense(reason string) Outcome {
	if reason == "" {
		reason = "License has expired"
	}
	return Outcome{Tag: TagExpired, Level: LevelBlocked, Message: reason}
}

// NetworkFailure records an unreachable backend with no grace to fall back on.
func NetworkFailure(err error) Outcome {
	msg := "Could not reach the license server"
	if err != nil {
		msg = fmt.Sprintf("Could not reach the license server: %v", err)
	}
	return Outcome{Tag: TagNetworkError, Level: LevelBlocked, Message: msg}
}

// NoLicense records the absence of any cached license key.
func NoLicense() Outcome {
	return Outcome{Tag: TagNoLicense, Level: LevelBlocked, Message: "No license key has been entered"}
}

// InternalError records an unexpected, uncategorized failure.
func InternalError(err error) Outcome {
	msg := "An unexpected error occurred during license validation"
	if err != nil {
		msg = fmt.Sprintf("An unexpected error occurred during license validation: %v", err)
	}
	return Outcome{Tag: TagError, Level: LevelBlocked, Message: msg}
}

// DevelopmentOverride records the permanent development-mode grant.
func DevelopmentOverride() Outcome {
	return Outcome{
		Tag:     TagOnlineValid,
		Level:   LevelDevelopment,
		Message: "Development mode: all features enabled",
		Plan:    PlanPro,
	}
}
