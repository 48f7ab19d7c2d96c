package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "slidecli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SLIDE_CONFIG_FILE", path)
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLIDE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8742, cfg.Server.Port)
	assert.Equal(t, ModeProduction, cfg.License.Mode)
	assert.Equal(t, "https://license.slidecli.app/v1/validate", cfg.License.BackendURL)
	assert.Equal(t, 3, cfg.License.FullGraceDays)
	assert.Equal(t, 7, cfg.License.LimitedGraceDays)
	assert.Equal(t, 10, cfg.License.FreeObjectLimit)
	assert.Equal(t, 24*time.Hour, cfg.License.RevalidateInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.License.IsDevelopment())
}

func TestLoadFromYAMLFile(t *testing.T) {
	writeConfigFile(t, `
server:
  port: 9100
license:
  mode: development
  full_grace_days: 5
  limited_grace_days: 14
logging:
  level: debug
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, ModeDevelopment, cfg.License.Mode)
	assert.True(t, cfg.License.IsDevelopment())
	assert.Equal(t, 5, cfg.License.FullGraceDays)
	assert.Equal(t, 14, cfg.License.LimitedGraceDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	writeConfigFile(t, `
server:
  port: 9100
license:
  revalidate_hours: 12
`)
	t.Setenv("SLIDE_SERVER_PORT", "9200")
	t.Setenv("SLIDE_LICENSE_REVALIDATE_HOURS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, 6*time.Hour, cfg.License.RevalidateInterval())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid port", "server:\n  port: 99999\n"},
		{"invalid mode", "license:\n  mode: staging\n"},
		{"inverted grace windows", "license:\n  full_grace_days: 10\n  limited_grace_days: 3\n"},
		{"zero revalidate interval", "license:\n  revalidate_hours: -1\n"},
		{"invalid log level", "logging:\n  level: verbose\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfigFile(t, tt.yaml)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestResolvePathsMakesAbsolute(t *testing.T) {
	t.Setenv("SLIDE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Paths.LicenseFile))
	assert.True(t, filepath.IsAbs(cfg.Paths.StagingDir))
	assert.True(t, filepath.IsAbs(cfg.Paths.DataDir))
	assert.True(t, filepath.IsAbs(cfg.Logging.FilePath))
}

func TestAbsolutePathsAreKept(t *testing.T) {
	writeConfigFile(t, `
paths:
  license_file: /var/lib/slidecli/license.dat
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/slidecli/license.dat", cfg.Paths.LicenseFile)
}
