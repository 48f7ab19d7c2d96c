package license

import "strings"

// Plan identifies a subscription plan as reported by the license backend.
// Parsing is exhaustive: anything the backend sends that we do not recognize
// becomes PlanUnknown and stays visible, rather than being coerced to Free.
type Plan int

const (
	PlanUnknown Plan = iota
	PlanFree
	PlanStarter
	PlanGrowth
	PlanPro
)

// planNames holds the canonical display strings, indexed by Plan.
var planNames = [...]string{
	PlanUnknown: "Unknown",
	PlanFree:    "Free",
	PlanStarter: "Starter",
	PlanGrowth:  "Growth",
	PlanPro:     "Pro",
}

// ParsePlan maps a backend plan identifier to a Plan. Legacy identifiers from
// the first-generation backend ("basic", "limited", "full") are still accepted.
func ParsePlan(s string) Plan {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return PlanFree
	case "starter", "basic":
		return PlanStarter
	case "growth", "limited":
		return PlanGrowth
	case "pro", "full", "professional":
		return PlanPro
	default:
		return PlanUnknown
	}
}

// String returns the canonical display name for the plan.
func (p Plan) String() string {
	if p < PlanUnknown || int(p) >= len(planNames) {
		return planNames[PlanUnknown]
	}
	return planNames[p]
}

// AccessLevel returns the entitlement tier the plan grants. PlanUnknown grants
// LevelFree: we honor that a license exists but never guess a paid tier from
// an identifier we cannot parse.
func (p Plan) AccessLevel() AccessLevel {
	switch p {
	case PlanFree:
		return LevelFree
	case PlanStarter:
		return LevelStarter
	case PlanGrowth:
		return LevelGrowth
	case PlanPro:
		return LevelPro
	default:
		return LevelFree
	}
}
