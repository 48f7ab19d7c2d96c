package license

import "time"

// Record is the persisted license snapshot. It is created or replaced only
// when a key is freshly validated online; the engine treats every loaded
// record as an immutable snapshot per read.
type Record struct {
	LicenseKey     string     `json:"license_key"`
	UserID         string     `json:"user_id"`
	PlanType       string     `json:"plan_type"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	StartDate      time.Time  `json:"start_date"`
	LastValidation *time.Time `json:"last_validation,omitempty"`
}

// Plan parses the persisted plan identifier.
func (r Record) Plan() Plan {
	return ParsePlan(r.PlanType)
}
