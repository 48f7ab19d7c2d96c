package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Manifest describes one downloadable release, as bundled with a validation
// response by the license backend.
type Manifest struct {
	Version           string    `json:"version"`
	ReleasedAt        time.Time `json:"released_at"`
	DownloadURL       string    `json:"download_url"`
	ChecksumSHA256    string    `json:"checksum_sha256"`
	Size              int64     `json:"size"`
	Critical          bool      `json:"critical"`
	MinUpgradableFrom string    `json:"min_upgradable_from"`
}

// Updater downloads release binaries announced by the license backend and
// stages them for application on next restart. It never participates in
// entitlement decisions: a failed download is logged and forgotten.
type Updater struct {
	currentVersion string
	stagingDir     string
	executablePath string
	httpClient     *http.Client
	logger         *slog.Logger

	mu      sync.Mutex
	pending *Manifest
}

// New creates an updater staging downloads under stagingDir.
func New(currentVersion, stagingDir string, logger *slog.Logger) (*Updater, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &Updater{
		currentVersion: currentVersion,
		stagingDir:     stagingDir,
		executablePath: execPath,
		httpClient:     &http.Client{Timeout: 5 * time.Minute},
		logger:         logger.With(slog.String("component", "updater")),
	}, nil
}

// CheckForUpdate reports whether the manifest announces a newer version than
// the one currently running.
func (u *Updater) CheckForUpdate(manifest *Manifest) bool {
	if manifest == nil || manifest.Version == "" {
		return false
	}
	return manifest.Version != u.currentVersion
}

// DownloadUpdate fetches the release named by the manifest into the staging
// directory and verifies its checksum. On success the manifest becomes the
// pending update, replacing any previously staged one.
func (u *Updater) DownloadUpdate(ctx context.Context, manifest *Manifest) error {
	if manifest == nil {
		return fmt.Errorf("nil update manifest")
	}

	dest := u.stagedPath(manifest.Version)
	if err := u.downloadFile(ctx, manifest.DownloadURL, dest); err != nil {
		return fmt.Errorf("failed to download update %s: %w", manifest.Version, err)
	}

	if err := verifyChecksum(dest, manifest.ChecksumSHA256); err != nil {
		os.Remove(dest)
		return fmt.Errorf("update %s failed verification: %w", manifest.Version, err)
	}

	u.mu.Lock()
	u.pending = manifest
	u.mu.Unlock()

	u.logger.Info("update staged",
		slog.String("version", manifest.Version),
		slog.Bool("critical", manifest.Critical),
		slog.Int64("size_bytes", manifest.Size),
	)

	return nil
}

// HasPendingUpdate reports whether a verified download is staged.
func (u *Updater) HasPendingUpdate() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pending != nil
}

// PendingUpdate returns the staged manifest, or nil.
func (u *Updater) PendingUpdate() *Manifest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pending
}

// ApplyPendingUpdate replaces the running executable with the staged binary,
// keeping a backup to restore on failure. The new binary takes effect on the
// next process start.
func (u *Updater) ApplyPendingUpdate() error {
	u.mu.Lock()
	pending := u.pending
	u.mu.Unlock()

	if pending == nil {
		return fmt.Errorf("no pending update to apply")
	}

	staged := u.stagedPath(pending.Version)
	if _, err := os.Stat(staged); err != nil {
		return fmt.Errorf("staged update missing: %w", err)
	}

	backup := u.executablePath + ".backup"
	if err := copyFile(u.executablePath, backup); err != nil {
		return fmt.Errorf("failed to back up current executable: %w", err)
	}

	if err := copyFile(staged, u.executablePath); err != nil {
		copyFile(backup, u.executablePath)
		return fmt.Errorf("failed to replace executable: %w", err)
	}

	os.Remove(backup)
	os.Remove(staged)

	u.mu.Lock()
	u.pending = nil
	u.mu.Unlock()

	u.logger.Info("update applied", slog.String("version", pending.Version))
	return nil
}

func (u *Updater) stagedPath(version string) string {
	return filepath.Join(u.stagingDir, fmt.Sprintf("slidecli-%s.bin", version))
}

func (u *Updater) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func verifyChecksum(path, wantHex string) error {
	if wantHex == "" {
		return fmt.Errorf("manifest carries no checksum")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != wantHex {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, wantHex)
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
