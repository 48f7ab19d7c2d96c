package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpdater(t *testing.T, version string) *Updater {
	t.Helper()

	u, err := New(version, t.TempDir(), slog.Default())
	require.NoError(t, err)
	return u
}

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestCheckForUpdate(t *testing.T) {
	u := testUpdater(t, "2.0.0")

	tests := []struct {
		name     string
		manifest *Manifest
		want     bool
	}{
		{"nil manifest", nil, false},
		{"empty version", &Manifest{}, false},
		{"same version", &Manifest{Version: "2.0.0"}, false},
		{"newer version", &Manifest{Version: "2.1.0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, u.CheckForUpdate(tt.manifest))
		})
	}
}

func TestDownloadUpdate(t *testing.T) {
	payload := []byte("new binary contents")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	u := testUpdater(t, "2.0.0")
	manifest := &Manifest{
		Version:        "2.1.0",
		DownloadURL:    srv.URL,
		ChecksumSHA256: checksumOf(payload),
		Critical:       true,
	}

	require.NoError(t, u.DownloadUpdate(context.Background(), manifest))

	assert.True(t, u.HasPendingUpdate())
	assert.Equal(t, manifest, u.PendingUpdate())

	staged, err := os.ReadFile(u.stagedPath("2.1.0"))
	require.NoError(t, err)
	assert.Equal(t, payload, staged)
}

// TestDownloadUpdateChecksumMismatch verifies a corrupted download is
// discarded and never becomes pending.
func TestDownloadUpdateChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered contents"))
	}))
	defer srv.Close()

	u := testUpdater(t, "2.0.0")
	manifest := &Manifest{
		Version:        "2.1.0",
		DownloadURL:    srv.URL,
		ChecksumSHA256: checksumOf([]byte("expected contents")),
	}

	err := u.DownloadUpdate(context.Background(), manifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification")

	assert.False(t, u.HasPendingUpdate())
	_, statErr := os.Stat(u.stagedPath("2.1.0"))
	assert.True(t, os.IsNotExist(statErr), "failed download must be removed")
}

func TestDownloadUpdateMissingChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("contents"))
	}))
	defer srv.Close()

	u := testUpdater(t, "2.0.0")
	err := u.DownloadUpdate(context.Background(), &Manifest{Version: "2.1.0", DownloadURL: srv.URL})

	require.Error(t, err)
	assert.False(t, u.HasPendingUpdate())
}

func TestDownloadUpdateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	u := testUpdater(t, "2.0.0")
	err := u.DownloadUpdate(context.Background(), &Manifest{
		Version:        "2.1.0",
		DownloadURL:    srv.URL,
		ChecksumSHA256: checksumOf(nil),
	})

	require.Error(t, err)
	assert.False(t, u.HasPendingUpdate())
}

func TestDownloadUpdateNilManifest(t *testing.T) {
	u := testUpdater(t, "2.0.0")
	assert.Error(t, u.DownloadUpdate(context.Background(), nil))
}

func TestApplyPendingUpdateWithoutPending(t *testing.T) {
	u := testUpdater(t, "2.0.0")
	assert.Error(t, u.ApplyPendingUpdate())
}

func TestVerifyChecksum(t *testing.T) {
	path := t.TempDir() + "/file.bin"
	data := []byte("some payload")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	assert.NoError(t, verifyChecksum(path, checksumOf(data)))
	assert.Error(t, verifyChecksum(path, checksumOf([]byte("other"))))
	assert.Error(t, verifyChecksum(path, ""))
}
