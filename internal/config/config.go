// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	SettingsPath string
	LogPath      string
	LogLevel     string
	APIBaseURL   string
	Settings     Settings
}

// Default values
const (
	defaultRefreshIntervalMinutes = 5
	defaultStatusBarPriority      = 100
	defaultNotifyAtThreshold      = 0.9
	minRefreshIntervalMinutes     = 1
)

// Load reads configuration from .env files, the settings file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath: getEnvString("DATABASE_PATH", defaultPath("usage.db")),
		SettingsPath: getEnvString("SETTINGS_PATH", defaultPath("settings.yaml")),
		LogPath:      getEnvString("LOG_PATH", defaultPath("cmeter.log")),
		LogLevel:     getEnvString("CMETER_LOG_LEVEL", "info"),
		APIBaseURL:   getEnvString("CMETER_API_BASE_URL", ""),
	}

	if err := cfg.Reload(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure settings directory exists
	if err := ensureDir(filepath.Dir(cfg.SettingsPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Reload re-reads the settings file and applies environment overrides.
func (c *Config) Reload() error {
	settings, err := LoadSettings(c.SettingsPath)
	if err != nil {
		return err
	}
	applyEnvOverrides(&settings)
	settings.normalize()
	c.Settings = settings
	return nil
}

// RefreshInterval returns the polling interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Settings.RefreshIntervalMinutes) * time.Minute
}

// Display returns the presentation options.
func (c *Config) Display() models.DisplayOptions {
	return models.DisplayOptions{
		Position:           models.StatusPosition(c.Settings.StatusBarPosition),
		Priority:           c.Settings.StatusBarPriority,
		ShowModelBreakdown: c.Settings.ShowModelBreakdown,
	}
}

// EnvToken names the variable that overrides the settings file token.
const EnvToken = "CMETER_TOKEN"

// ErrTokenOverridden is returned after a settings file token change that
// has no effect because EnvToken is set.
var ErrTokenOverridden = errors.New(EnvToken + " is set and overrides the settings file token")

// TokenOverridden reports whether EnvToken currently replaces the manual token.
func TokenOverridden() bool {
	return os.Getenv(EnvToken) != ""
}

func applyEnvOverrides(s *Settings) {
	s.RefreshIntervalMinutes = getEnvMinutes("CMETER_REFRESH_INTERVAL", s.RefreshIntervalMinutes)
	s.ManualToken = getEnvString(EnvToken, s.ManualToken)
	s.StatusBarPosition = getEnvString("CMETER_STATUS_POSITION", s.StatusBarPosition)
	s.StatusBarPriority = getEnvInt("CMETER_STATUS_PRIORITY", s.StatusBarPriority)
	s.ShowModelBreakdown = getEnvBool("CMETER_SHOW_MODEL_BREAKDOWN", s.ShowModelBreakdown)
	s.NotifyAtThreshold = getEnvFloat("CMETER_NOTIFY_THRESHOLD", s.NotifyAtThreshold)
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "claude-meter", ".env"),
			filepath.Join(home, ".claude-meter", ".env"),
		)
	}

	return paths
}

// configDir returns the directory holding settings, the database and logs.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "claude-meter")
}

func defaultPath(name string) string {
	return filepath.Join(configDir(), name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvMinutes retrieves an interval in whole minutes.
// Accepts a bare number of minutes ("5") or a Go duration ("90s", "1h").
func getEnvMinutes(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if mins, err := strconv.Atoi(value); err == nil {
		return mins
	}
	if d, err := time.ParseDuration(value); err == nil {
		return int((d + time.Minute - 1) / time.Minute)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}
