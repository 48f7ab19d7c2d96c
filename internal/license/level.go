package license

import "strings"

// AccessLevel is the ordinal entitlement tier gating feature availability.
// Levels form a total order except for LevelDevelopment, which sits outside
// the ordering and satisfies every requirement.
type AccessLevel int

const (
	LevelBlocked AccessLevel = 0
	LevelFree    AccessLevel = 1
	LevelStarter AccessLevel = 2
	LevelGrowth  AccessLevel = 3
	LevelPro     AccessLevel = 4

	// LevelDevelopment is a sentinel for internal builds. It bypasses ordinal
	// comparison entirely and must be checked before any >= test.
	LevelDevelopment AccessLevel = 99
)

// IsAtLeast reports whether the level satisfies the given requirement.
// Development satisfies everything; nothing but Development satisfies a
// Development requirement.
func (l AccessLevel) IsAtLeast(required AccessLevel) bool {
	if l == LevelDevelopment {
		return true
	}
	if required == LevelDevelopment {
		return false
	}
	return l >= required
}

// String returns the display name for the level.
func (l AccessLevel) String() string {
	switch l {
	case LevelBlocked:
		return "Blocked"
	case LevelFree:
		return "Free"
	case LevelStarter:
		return "Starter"
	case LevelGrowth:
		return "Growth"
	case LevelPro:
		return "Pro"
	case LevelDevelopment:
		return "Development"
	default:
		return "Unknown"
	}
}

// ParseAccessLevel maps a level name back to its AccessLevel. Unrecognized
// names map to LevelBlocked so a corrupted persisted value never grants access.
func ParseAccessLevel(s string) AccessLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocked":
		return LevelBlocked
	case "free":
		return LevelFree
	case "starter":
		return LevelStarter
	case "growth":
		return LevelGrowth
	case "pro":
		return LevelPro
	case "development":
		return LevelDevelopment
	default:
		return LevelBlocked
	}
}
