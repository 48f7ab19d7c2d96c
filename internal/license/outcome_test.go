package license

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestOutcomeFactories checks that every factory produces an internally
// consistent tag/level pairing. Failure tags must never carry access.
func TestOutcomeFactories(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		outcome   Outcome
		wantTag   OutcomeTag
		wantLevel AccessLevel
		success   bool
	}{
		{"online valid pro", OnlineValid("user-1", PlanPro, &expiry), TagOnlineValid, LevelPro, true},
		{"online valid starter", OnlineValid("user-2", PlanStarter, nil), TagOnlineValid, LevelStarter, true},
		{"offline grace full", OfflineGrace(LevelPro, 2), TagOfflineGrace, LevelPro, false},
		{"offline grace limited", OfflineGrace(LevelFree, 1), TagOfflineGrace, LevelFree, false},
		{"invalid", InvalidLicense("rejected"), TagInvalid, LevelBlocked, false},
		{"expired", ExpiredLicense(""), TagExpired, LevelBlocked, false},
		{"network failure", NetworkFailure(errors.New("dial timeout")), TagNetworkError, LevelBlocked, false},
		{"no license", NoLicense(), TagNoLicense, LevelBlocked, false},
		{"internal error", InternalError(errors.New("boom")), TagError, LevelBlocked, false},
		{"development override", DevelopmentOverride(), TagOnlineValid, LevelDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, tt.outcome.Tag)
			assert.Equal(t, tt.wantLevel, tt.outcome.Level)
			assert.Equal(t, tt.success, tt.outcome.IsSuccess())
			assert.NotEmpty(t, tt.outcome.Message)
		})
	}
}

// TestOutcomeCarriesIdentity verifies OnlineValid keeps the backend-reported
// identity fields for the record writer.
func TestOutcomeCarriesIdentity(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	outcome := OnlineValid("user-42", PlanGrowth, &expiry)

	assert.Equal(t, "user-42", outcome.UserID)
	assert.Equal(t, PlanGrowth, outcome.Plan)
	assert.Equal(t, &expiry, outcome.Expiry)
}

func TestOutcomeDefaultMessages(t *testing.T) {
	assert.Equal(t, "License key is invalid", InvalidLicense("").Message)
	assert.Equal(t, "License has expired", ExpiredLicense("").Message)
	assert.Contains(t, NetworkFailure(nil).Message, "Could not reach")
	assert.Contains(t, InternalError(nil).Message, "unexpected error")
}
