// Package settings manages persistent user settings for the newtcli CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/newtron-network/newtcli/pkg/util"
)

// Settings holds persistent user preferences
type Settings struct {
	// InventoryDir holds families.yaml and devices.yaml
	InventoryDir string `json:"inventory_dir,omitempty"`

	// DefaultDevice is the device to use when -d is not specified
	DefaultDevice string `json:"default_device,omitempty"`

	// CacheAddress is a Redis address for the shared show-command cache.
	// Empty keeps the cache in memory for the life of one command.
	CacheAddress string `json:"cache_address,omitempty"`

	// AuditLogPath overrides the default audit log location
	AuditLogPath string `json:"audit_log_path,omitempty"`

	// MetricsTextfile, when set, receives run metrics after every command
	// in node_exporter textfile format
	MetricsTextfile string `json:"metrics_textfile,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newtcli_settings.json"
	}
	return filepath.Join(home, ".newtcli", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetInventoryDir returns the inventory directory (with fallback)
func (s *Settings) GetInventoryDir() string {
	if s.InventoryDir != "" {
		return s.InventoryDir
	}
	return "/etc/newtcli"
}

// GetAuditLogPath returns the audit log path (with fallback)
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return filepath.Join(filepath.Dir(DefaultSettingsPath()), "audit.log")
}

// fields maps the names accepted by Set to the settings they change.
func (s *Settings) fields() map[string]*string {
	return map[string]*string{
		"inventory_dir":    &s.InventoryDir,
		"default_device":   &s.DefaultDevice,
		"cache_address":    &s.CacheAddress,
		"audit_log_path":   &s.AuditLogPath,
		"metrics_textfile": &s.MetricsTextfile,
	}
}

// Keys returns the setting names, sorted.
func (s *Settings) Keys() []string {
	var keys []string
	for k := range s.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of the named setting.
func (s *Settings) Get(key string) (string, error) {
	f, ok := s.fields()[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", util.ErrInvalidConfig, key)
	}
	return *f, nil
}

// Set changes the named setting; an empty value resets it.
func (s *Settings) Set(key, value string) error {
	f, ok := s.fields()[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", util.ErrInvalidConfig, key)
	}
	*f = value
	return nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
