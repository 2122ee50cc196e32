package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Settings are the user-editable options persisted in settings.yaml.
type Settings struct {
	ManualToken            string  `yaml:"manualToken,omitempty"`
	StatusBarPosition      string  `yaml:"statusBarPosition"`
	RefreshIntervalMinutes int     `yaml:"refreshIntervalMinutes"`
	StatusBarPriority      int     `yaml:"statusBarPriority"`
	NotifyAtThreshold      float64 `yaml:"notifyAtThreshold"`
	ShowModelBreakdown     bool    `yaml:"showModelBreakdown"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		RefreshIntervalMinutes: defaultRefreshIntervalMinutes,
		StatusBarPosition:      string(models.StatusRight),
		StatusBarPriority:      defaultStatusBarPriority,
		NotifyAtThreshold:      defaultNotifyAtThreshold,
	}
}

// LoadSettings reads a settings file. A missing file yields the defaults;
// keys absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes settings to path, replacing the file atomically.
func SaveSettings(path string, s Settings) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// SaveManualToken persists a manual token override. Only the file contents
// are touched, so environment overrides never leak into the file.
func SaveManualToken(path, token string) error {
	s, err := LoadSettings(path)
	if err != nil {
		return err
	}
	s.ManualToken = strings.TrimSpace(token)
	return SaveSettings(path, s)
}

// ClearManualToken removes the manual token override.
func ClearManualToken(path string) error {
	return SaveManualToken(path, "")
}

// normalize clamps values into their valid ranges.
func (s *Settings) normalize() {
	if s.RefreshIntervalMinutes < minRefreshIntervalMinutes {
		s.RefreshIntervalMinutes = defaultRefreshIntervalMinutes
	}
	if s.NotifyAtThreshold <= 0 || s.NotifyAtThreshold > 1 {
		s.NotifyAtThreshold = defaultNotifyAtThreshold
	}
	switch models.StatusPosition(strings.ToLower(s.StatusBarPosition)) {
	case models.StatusLeft:
		s.StatusBarPosition = string(models.StatusLeft)
	default:
		s.StatusBarPosition = string(models.StatusRight)
	}
}
