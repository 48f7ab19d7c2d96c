package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAccessLevelIsAtLeast tests the ordinal comparison and the development
// sentinel semantics.
func TestAccessLevelIsAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		level    AccessLevel
		required AccessLevel
		want     bool
	}{
		{"free satisfies free", LevelFree, LevelFree, true},
		{"free does not satisfy starter", LevelFree, LevelStarter, false},
		{"starter satisfies free", LevelStarter, LevelFree, true},
		{"growth satisfies starter", LevelGrowth, LevelStarter, true},
		{"growth does not satisfy pro", LevelGrowth, LevelPro, false},
		{"pro satisfies pro", LevelPro, LevelPro, true},
		{"pro satisfies free", LevelPro, LevelFree, true},
		{"blocked satisfies nothing but blocked", LevelBlocked, LevelFree, false},
		{"blocked satisfies blocked", LevelBlocked, LevelBlocked, true},
		{"development satisfies pro", LevelDevelopment, LevelPro, true},
		{"development satisfies free", LevelDevelopment, LevelFree, true},
		{"development satisfies development", LevelDevelopment, LevelDevelopment, true},
		{"pro does not satisfy development", LevelPro, LevelDevelopment, false},
		{"blocked does not satisfy development", LevelBlocked, LevelDevelopment, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.IsAtLeast(tt.required))
		})
	}
}

// TestAccessLevelDevelopmentOutsideOrdering guards against the sentinel being
// treated as a plain large ordinal: a Development requirement is not satisfied
// by any numeric level, even though 99 > 4.
func TestAccessLevelDevelopmentOutsideOrdering(t *testing.T) {
	for _, level := range []AccessLevel{LevelBlocked, LevelFree, LevelStarter, LevelGrowth, LevelPro} {
		assert.False(t, level.IsAtLeast(LevelDevelopment),
			"%s must not satisfy a Development requirement", level)
	}
}

func TestAccessLevelString(t *testing.T) {
	tests := []struct {
		level AccessLevel
		want  string
	}{
		{LevelBlocked, "Blocked"},
		{LevelFree, "Free"},
		{LevelStarter, "Starter"},
		{LevelGrowth, "Growth"},
		{LevelPro, "Pro"},
		{LevelDevelopment, "Development"},
		{AccessLevel(42), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

// TestParseAccessLevel tests round-tripping and the blocked fallback for
// unrecognized names.
func TestParseAccessLevel(t *testing.T) {
	tests := []struct {
		input string
		want  AccessLevel
	}{
		{"free", LevelFree},
		{"Free", LevelFree},
		{"  PRO  ", LevelPro},
		{"growth", LevelGrowth},
		{"starter", LevelStarter},
		{"development", LevelDevelopment},
		{"blocked", LevelBlocked},
		{"", LevelBlocked},
		{"enterprise", LevelBlocked},
		{"garbage", LevelBlocked},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAccessLevel(tt.input), "input %q", tt.input)
	}
}
