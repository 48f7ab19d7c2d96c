package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecli/internal/license"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "license.dat")
	s, err := NewFileStore(path, "test-secret", slog.Default())
	require.NoError(t, err)
	return s
}

func testRecord() license.Record {
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return license.Record{
		LicenseKey:     "SLIDE-TEST-KEY-0001",
		UserID:         "user-1",
		PlanType:       "Pro",
		ExpiryDate:     &expiry,
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LastValidation: &last,
	}
}

func TestNewFileStoreValidation(t *testing.T) {
	_, err := NewFileStore("", "secret", slog.Default())
	assert.Error(t, err)

	_, err = NewFileStore(filepath.Join(t.TempDir(), "license.dat"), "", slog.Default())
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	s := testStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, license.ErrNoLicense)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	record := testRecord()

	require.NoError(t, s.Save(record))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, record.LicenseKey, loaded.LicenseKey)
	assert.Equal(t, record.UserID, loaded.UserID)
	assert.Equal(t, record.PlanType, loaded.PlanType)
	require.NotNil(t, loaded.LastValidation)
	assert.True(t, record.LastValidation.Equal(*loaded.LastValidation))
}

func TestSaveSetsRestrictivePermissions(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(testRecord()))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadMalformedFile(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json at all"), 0o600))

	_, err := s.Load()
	assert.ErrorIs(t, err, license.ErrNoLicense, "a malformed cache reads as absent, never as an error")
}

// TestLoadTamperedFile edits the persisted validation timestamp by hand and
// verifies the signature check throws the record away. Extending the grace
// window with a text editor must not work.
func TestLoadTamperedFile(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(testRecord()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))

	forged := time.Now().Add(24 * time.Hour)
	env.Record.LastValidation = &forged

	tampered, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), tampered, 0o600))

	_, err = s.Load()
	assert.ErrorIs(t, err, license.ErrNoLicense)
}

func TestLoadWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.dat")

	s1, err := NewFileStore(path, "secret-one", slog.Default())
	require.NoError(t, err)
	require.NoError(t, s1.Save(testRecord()))

	s2, err := NewFileStore(path, "secret-two", slog.Default())
	require.NoError(t, err)

	_, err = s2.Load()
	assert.ErrorIs(t, err, license.ErrNoLicense)
}

func TestUpdateLastValidation(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(testRecord()))

	ts := time.Date(2025, 6, 20, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.UpdateLastValidation(ts))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.LastValidation)
	assert.True(t, ts.Equal(*loaded.LastValidation))
	assert.Equal(t, "SLIDE-TEST-KEY-0001", loaded.LicenseKey, "other fields survive the stamp")
}

func TestUpdateLastValidationWithoutRecord(t *testing.T) {
	s := testStore(t)

	err := s.UpdateLastValidation(time.Now())
	assert.ErrorIs(t, err, license.ErrNoLicense)
}

func TestMaskedKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key", "SLIDE-TEST-KEY-0001", "SLID****0001"},
		{"short key fully masked", "SHORT", "****"},
		{"eight characters fully masked", "12345678", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			record := testRecord()
			record.LicenseKey = tt.key
			require.NoError(t, s.Save(record))

			masked, err := s.MaskedKey()
			require.NoError(t, err)
			assert.Equal(t, tt.want, masked)
		})
	}
}

func TestMaskedKeyWithoutRecord(t *testing.T) {
	s := testStore(t)

	_, err := s.MaskedKey()
	assert.ErrorIs(t, err, license.ErrNoLicense)
}

func TestSaveOverwritesPrevious(t *testing.T) {
	s := testStore(t)

	first := testRecord()
	require.NoError(t, s.Save(first))

	second := testRecord()
	second.LicenseKey = "SLIDE-OTHER-KEY-9999"
	second.PlanType = "Growth"
	require.NoError(t, s.Save(second))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "SLIDE-OTHER-KEY-9999", loaded.LicenseKey)
	assert.Equal(t, "Growth", loaded.PlanType)
}
