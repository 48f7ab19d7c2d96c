package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecli/internal/license"
)

type stubChecker struct {
	decision license.Decision
	err      error
	queried  string
}

func (c *stubChecker) CheckFeatureAccess(feature string) (license.Decision, error) {
	c.queried = feature
	return c.decision, c.err
}

func gateHandler(checker *stubChecker) http.Handler {
	gate := NewFeatureGate(checker, map[string]string{
		"/api/export/pdf": "export.pdf",
		"/api/sharing":    "sharing.team",
	}, slog.Default())

	return gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestFeatureGateUnmappedPathPassesThrough(t *testing.T) {
	checker := &stubChecker{}
	handler := gateHandler(checker)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/license/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, checker.queried, "unmapped paths never hit the engine")
}

func TestFeatureGateAllowsEntitledRequest(t *testing.T) {
	checker := &stubChecker{decision: license.Decision{
		Feature: "export.pdf",
		Allowed: true,
		Level:   license.LevelPro,
	}}
	handler := gateHandler(checker)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export/pdf", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "export.pdf", checker.queried)
}

func TestFeatureGateDeniesBelowTier(t *testing.T) {
	checker := &stubChecker{decision: license.Decision{
		Feature:  "sharing.team",
		Allowed:  false,
		Level:    license.LevelFree,
		Required: license.LevelPro,
	}}
	handler := gateHandler(checker)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sharing/invite", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "sharing.team", problem["feature"])
	assert.Equal(t, "Pro", problem["required_plan"])
}

// TestFeatureGateFailsClosed verifies an engine that cannot answer denies
// the request rather than letting it through.
func TestFeatureGateFailsClosed(t *testing.T) {
	checker := &stubChecker{err: license.ErrNotInitialized}
	handler := gateHandler(checker)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export/pdf", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
