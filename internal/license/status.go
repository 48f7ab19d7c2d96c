package license

import "time"

// Status is the in-memory, derived view of the current entitlement. Exactly
// one is live per Manager; it is rebuilt on every validation event and
// replaced wholesale through an atomic pointer swap, never mutated in place,
// so concurrent readers always observe a complete snapshot.
type Status struct {
	Source         OutcomeTag  `json:"source"`
	IsValid        bool        `json:"is_valid"`
	Level          AccessLevel `json:"access_level"`
	PlanType       string      `json:"plan_type"`
	ExpiryDate     *time.Time  `json:"expiry_date,omitempty"`
	LastValidation *time.Time  `json:"last_validation,omitempty"`
	Message        string      `json:"message"`
}

// BuildStatus reconciles a validation outcome with the cached record into a
// fresh status snapshot. This is the single place where outcome and record
// data meet; no other component reads both at once.
func BuildStatus(outcome Outcome, record *Record) Status {
	s := Status{
		Source:  outcome.Tag,
		IsValid: outcome.IsSuccess() || outcome.Level != LevelBlocked,
		Level:   outcome.Level,
		Message: outcome.Message,
	}

	s.PlanType = outcome.Plan.String()
	s.ExpiryDate = outcome.Expiry

	if record != nil {
		if outcome.Plan == PlanUnknown && record.PlanType != "" {
			s.PlanType = record.Plan().String()
		}
		if s.ExpiryDate == nil {
			s.ExpiryDate = record.ExpiryDate
		}
		s.LastValidation = record.LastValidation
	}

	return s
}
