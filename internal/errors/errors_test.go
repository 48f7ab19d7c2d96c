package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorRenderSetsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, render.Render(rec, req, ErrFeatureLocked))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FEATURE_LOCKED", body.ErrorCode)
	assert.NotEmpty(t, body.Message)
}

func TestAPIErrorImplementsError(t *testing.T) {
	err := New(http.StatusBadRequest, "BAD", "something was bad")
	assert.Equal(t, "something was bad", err.Error())
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusConflict, "CONFLICT", "nope", map[string]string{"field": "key"})

	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "CONFLICT", decoded["error_code"])
	assert.NotNil(t, decoded["details"])
}

// TestProblemDetailsMarshalFlattensExtensions verifies the RFC 7807 payload
// carries extension members at the top level.
func TestProblemDetailsMarshalFlattensExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusForbidden, "/errors/feature-locked", "Feature Not Available", "detail text", "/api/x").
		WithExtension("feature", "export.svg").
		WithExtension("required_plan", "Starter")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "/errors/feature-locked", decoded["type"])
	assert.Equal(t, "Feature Not Available", decoded["title"])
	assert.Equal(t, float64(http.StatusForbidden), decoded["status"])
	assert.Equal(t, "detail text", decoded["detail"])
	assert.Equal(t, "export.svg", decoded["feature"])
	assert.Equal(t, "Starter", decoded["required_plan"])
}

func TestNewFeatureLockedProblem(t *testing.T) {
	pd := NewFeatureLockedProblem("sharing.team", "Pro", "trace-1")

	assert.Equal(t, http.StatusForbidden, pd.Status)
	assert.Contains(t, pd.Detail, "sharing.team")
	assert.Contains(t, pd.Detail, "Pro")
	assert.Equal(t, "sharing.team", pd.Extensions["feature"])
	assert.Equal(t, "Pro", pd.Extensions["required_plan"])
}
