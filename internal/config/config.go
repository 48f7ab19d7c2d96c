// Package config loads and validates the application configuration from
// environment variables and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// LicenseMode selects the engine's operating mode at process start.
type LicenseMode string

const (
	ModeDevelopment LicenseMode = "development"
	ModeProduction  LicenseMode = "production"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	ActivateRPS     float64       `yaml:"activate_rps" envconfig:"ACTIVATE_RPS"`
	ActivateBurst   int           `yaml:"activate_burst" envconfig:"ACTIVATE_BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LicenseConfig contains the license engine configuration.
type LicenseConfig struct {
	Mode             LicenseMode   `yaml:"mode" envconfig:"MODE"`
	BackendURL       string        `yaml:"backend_url" envconfig:"BACKEND_URL"`
	RequestTimeout   time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	RevalidateHours  int           `yaml:"revalidate_hours" envconfig:"REVALIDATE_HOURS"`
	FullGraceDays    int           `yaml:"full_grace_days" envconfig:"FULL_GRACE_DAYS"`
	LimitedGraceDays int           `yaml:"limited_grace_days" envconfig:"LIMITED_GRACE_DAYS"`
	FreeObjectLimit  int           `yaml:"free_object_limit" envconfig:"FREE_OBJECT_LIMIT"`
	StoreSecret      string        `yaml:"store_secret" envconfig:"STORE_SECRET"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	LicenseFile string `yaml:"license_file" envconfig:"LICENSE_FILE"`
	StagingDir  string `yaml:"staging_dir" envconfig:"STAGING_DIR"`
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8742,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			ActivateRPS:     1,
			ActivateBurst:   5,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/slidecli.log",
		},
		License: LicenseConfig{
			Mode:             ModeProduction,
			BackendURL:       "https://license.slidecli.app/v1/validate",
			RequestTimeout:   30 * time.Second,
			RevalidateHours:  24,
			FullGraceDays:    3,
			LimitedGraceDays: 7,
			FreeObjectLimit:  10,
			StoreSecret:      "slidecli-local-store",
		},
		Paths: PathsConfig{
			LicenseFile: "license.dat",
			StagingDir:  "updates",
			DataDir:     "data",
		},
	}
}

// Load layers configuration: built-in defaults, then a slidecli.yaml next to
// the executable when present, then environment variables. Environment wins.
func Load() (*Config, error) {
	cfg := Default()

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	var env Config
	if err := envconfig.Process("SLIDE", &env); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg = merge(cfg, env)

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// RevalidateInterval returns the background revalidation period.
func (c LicenseConfig) RevalidateInterval() time.Duration {
	return time.Duration(c.RevalidateHours) * time.Hour
}

// IsDevelopment reports whether development mode is selected.
func (c LicenseConfig) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

// merge overlays env-derived values on the layered base: any env value that
// differs from its zero value was explicitly set and takes precedence.
func merge(base, env Config) Config {
	out := base

	if env.Server.Port != 0 {
		out.Server.Port = env.Server.Port
	}
	if env.Server.ReadTimeout != 0 {
		out.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if env.Server.WriteTimeout != 0 {
		out.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if env.Server.IdleTimeout != 0 {
		out.Server.IdleTimeout = env.Server.IdleTimeout
	}
	if env.Server.ShutdownTimeout != 0 {
		out.Server.ShutdownTimeout = env.Server.ShutdownTimeout
	}
	if env.Server.ActivateRPS != 0 {
		out.Server.ActivateRPS = env.Server.ActivateRPS
	}
	if env.Server.ActivateBurst != 0 {
		out.Server.ActivateBurst = env.Server.ActivateBurst
	}

	if env.Logging.Level != "" {
		out.Logging.Level = env.Logging.Level
	}
	if env.Logging.Output != "" {
		out.Logging.Output = env.Logging.Output
	}
	if env.Logging.FilePath != "" {
		out.Logging.FilePath = env.Logging.FilePath
	}

	if env.License.Mode != "" {
		out.License.Mode = env.License.Mode
	}
	if env.License.BackendURL != "" {
		out.License.BackendURL = env.License.BackendURL
	}
	if env.License.RequestTimeout != 0 {
		out.License.RequestTimeout = env.License.RequestTimeout
	}
	if env.License.RevalidateHours != 0 {
		out.License.RevalidateHours = env.License.RevalidateHours
	}
	if env.License.FullGraceDays != 0 {
		out.License.FullGraceDays = env.License.FullGraceDays
	}
	if env.License.LimitedGraceDays != 0 {
		out.License.LimitedGraceDays = env.License.LimitedGraceDays
	}
	if env.License.FreeObjectLimit != 0 {
		out.License.FreeObjectLimit = env.License.FreeObjectLimit
	}
	if env.License.StoreSecret != "" {
		out.License.StoreSecret = env.License.StoreSecret
	}

	if env.Paths.LicenseFile != "" {
		out.Paths.LicenseFile = env.Paths.LicenseFile
	}
	if env.Paths.StagingDir != "" {
		out.Paths.StagingDir = env.Paths.StagingDir
	}
	if env.Paths.DataDir != "" {
		out.Paths.DataDir = env.Paths.DataDir
	}

	return out
}

func (c *Config) resolvePaths() error {
	base, err := executableDir()
	if err != nil {
		return err
	}

	if !filepath.IsAbs(c.Paths.LicenseFile) {
		c.Paths.LicenseFile = filepath.Join(base, c.Paths.LicenseFile)
	}
	if !filepath.IsAbs(c.Paths.StagingDir) {
		c.Paths.StagingDir = filepath.Join(base, c.Paths.StagingDir)
	}
	if !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(base, c.Paths.DataDir)
	}
	if !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(base, c.Logging.FilePath)
	}

	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.License.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("invalid license mode: %q (must be development or production)", c.License.Mode)
	}

	if c.License.Mode == ModeProduction && c.License.BackendURL == "" {
		return fmt.Errorf("license backend URL must be set in production mode")
	}
	if c.License.FullGraceDays < 0 || c.License.LimitedGraceDays < c.License.FullGraceDays {
		return fmt.Errorf("invalid grace periods: full=%d limited=%d", c.License.FullGraceDays, c.License.LimitedGraceDays)
	}
	if c.License.RevalidateHours < 1 {
		return fmt.Errorf("revalidate interval must be at least 1 hour, got %d", c.License.RevalidateHours)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	return nil
}

func configFilePath() string {
	if p := os.Getenv("SLIDE_CONFIG_FILE"); p != "" {
		return p
	}
	base, err := executableDir()
	if err != nil {
		return "slidecli.yaml"
	}
	return filepath.Join(base, "slidecli.yaml")
}

func executableDir() (string, error) {
	// Prefer the working directory during development runs.
	if _, err := os.Stat("go.mod"); err == nil {
		return os.Getwd()
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}
