// Package store persists the cached license record between runs.
package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/scrypt"
	"slidecli/internal/license"
)

// scrypt parameters for deriving the signing key from the configured secret.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// signingSalt is fixed: the derivation only has to be stable per secret, the
// secret itself carries the entropy.
var signingSalt = []byte("slidecli-license-store-v1")

// envelope is the on-disk layout: the record plus an HMAC-SHA256 signature so
// casual tampering with the cached timestamps degrades to "no license"
// instead of extending the grace window.
type envelope struct {
	Record    license.Record `json:"record"`
	Signature string         `json:"signature"`
}

// FileStore keeps the license record in a single JSON file with 0600
// permissions. Writes are whole-record replacements through a temp file and
// rename, so a concurrent reader sees either the old or the new record.
type FileStore struct {
	path       string
	signingKey []byte
	logger     *slog.Logger

	mu sync.Mutex
}

// NewFileStore creates a store at path, deriving its signing key from secret.
func NewFileStore(path, secret string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("license file path must not be empty")
	}
	if secret == "" {
		return nil, errors.New("license store secret must not be empty")
	}

	key, err := scrypt.Key([]byte(secret), signingSalt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create license directory: %w", err)
	}

	return &FileStore{
		path:       path,
		signingKey: key,
		logger:     logger.With(slog.String("component", "license_store")),
	}, nil
}

// Load reads the cached record. A missing, malformed, or tampered file
// returns license.ErrNoLicense: the store never lets a bad cache escalate
// past "no license".
func (s *FileStore) Load() (*license.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, license.ErrNoLicense
		}
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("license file is malformed; treating as absent",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return nil, license.ErrNoLicense
	}

	if !hmac.Equal([]byte(env.Signature), []byte(s.sign(env.Record))) {
		s.logger.Warn("license file signature mismatch; treating as absent",
			slog.String("path", s.path),
		)
		return nil, license.ErrNoLicense
	}

	record := env.Record
	return &record, nil
}

// Save replaces the cached record atomically.
func (s *FileStore) Save(record license.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(record)
}

// UpdateLastValidation stamps the cached record with a fresh validation time.
// A missing record is an error: the timestamp only means something relative
// to a validated key.
func (s *FileStore) UpdateLastValidation(ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadLocked()
	if err != nil {
		return err
	}

	record.LastValidation = &ts
	return s.write(*record)
}

// MaskedKey returns the cached key in display-safe form.
func (s *FileStore) MaskedKey() (string, error) {
	record, err := s.Load()
	if err != nil {
		return "", err
	}

	key := record.LicenseKey
	if len(key) <= 8 {
		return "****", nil
	}
	return key[:4] + "****" + key[len(key)-4:], nil
}

// Path returns the license file location, for diagnostics.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) loadLocked() (*license.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, license.ErrNoLicense
		}
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, license.ErrNoLicense
	}
	if !hmac.Equal([]byte(env.Signature), []byte(s.sign(env.Record))) {
		return nil, license.ErrNoLicense
	}

	record := env.Record
	return &record, nil
}

func (s *FileStore) write(record license.Record) error {
	env := envelope{Record: record, Signature: s.sign(record)}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal license record: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write license file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace license file: %w", err)
	}

	s.logger.Debug("license record saved",
		slog.String("path", s.path),
		slog.Int("size_bytes", len(data)),
	)

	return nil
}

// sign computes the HMAC over the fields that matter for trust decisions.
func (s *FileStore) sign(record license.Record) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s",
		record.LicenseKey,
		record.UserID,
		record.PlanType,
		formatTimePtr(record.ExpiryDate),
		formatTimePtr(record.LastValidation),
	)

	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
