package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/cleaner-toolbox/internal/security"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	StorageRoot     string             `yaml:"storage_root"`
	DatabasePath    string             `yaml:"database_path"`
	Categories      Categories         `yaml:"categories"`
	Sources         Sources            `yaml:"sources"`
	IncludeHidden   bool               `yaml:"include_hidden"`
	ExcludePatterns []string           `yaml:"exclude_patterns"`
	WhitelistPaths  []string           `yaml:"whitelist_paths"`
	ProtectedPaths  []string           `yaml:"protected_paths"`
	DryRun          bool               `yaml:"dry_run"`
	Verbose         bool               `yaml:"verbose"`
	ManifestDir     string             `yaml:"manifest_dir"`
	EmptyFolders    EmptyFoldersConfig `yaml:"empty_folders"`
	Apps            AppsConfig         `yaml:"apps"`
	Contacts        ContactsConfig     `yaml:"contacts"`
	Device          DeviceConfig       `yaml:"device"`
	Daemon          *DaemonConfig      `yaml:"daemon,omitempty"`
}

// Categories toggles which junk types a scan reports
type Categories struct {
	Junk        bool `yaml:"junk"`
	ObsoleteAPK bool `yaml:"obsolete_apk"`
	Temp        bool `yaml:"temp"`
	Log         bool `yaml:"log"`
	Cache       bool `yaml:"cache"`
}

// Sources selects what the scan enumerates.
// AppCacheDirs and ObbDirs may be relative to StorageRoot and may contain globs.
type Sources struct {
	MediaIndex   bool     `yaml:"media_index"`
	AppCacheDirs []string `yaml:"app_cache_dirs"`
	ObbDirs      []string `yaml:"obb_dirs"`
}

// EmptyFoldersConfig controls the empty-folder finder
type EmptyFoldersConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// AppsConfig controls unused-app detection
type AppsConfig struct {
	InventoryFile string `yaml:"inventory_file"`
	UsageStats    bool   `yaml:"usage_stats"`
	IncludeSystem bool   `yaml:"include_system"`
	MinScore      int    `yaml:"min_score"`
}

// ContactsConfig points at the exported address book
type ContactsConfig struct {
	File string `yaml:"file"`
}

// DeviceConfig holds the procfs/sysfs roots used for battery and RAM readings
type DeviceConfig struct {
	ProcRoot string `yaml:"proc_root"`
	SysRoot  string `yaml:"sys_root"`
}

// DaemonConfig holds scheduled-check configuration
type DaemonConfig struct {
	Enabled       bool               `yaml:"enabled"`
	PidFile       string             `yaml:"pid_file"`
	LogFile       string             `yaml:"log_file"`
	LogLevel      string             `yaml:"log_level"`
	LogMaxSizeMB  int                `yaml:"log_max_size_mb"`
	LogMaxBackups int                `yaml:"log_max_backups"`
	LogMaxAgeDays int                `yaml:"log_max_age_days"`
	LogCompress   bool               `yaml:"log_compress"`
	MetricsAddr   string             `yaml:"metrics_addr"`
	Schedules     []CheckSchedule    `yaml:"schedules"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// CheckSchedule defines a scheduled check
type CheckSchedule struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // Cron expression
	Check    string `yaml:"check"`    // "junk" or "ram"

	// junk check
	JunkThreshold string   `yaml:"junk_threshold"` // e.g. "200MB"
	AutoClean     []string `yaml:"auto_clean"`     // file types removed without asking
	DryRun        bool     `yaml:"dry_run"`

	// ram check
	MinAvailablePercent float64 `yaml:"min_available_percent"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled     bool          `yaml:"enabled"`
	OnJunk      bool          `yaml:"on_junk"`
	OnLowMemory bool          `yaml:"on_low_memory"`
	OnClean     bool          `yaml:"on_clean"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

// WebhookConfig holds webhook notification settings
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
}

const (
	CheckJunk = "junk"
	CheckRAM  = "ram"
)

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal over the defaults so omitted keys keep sane values
	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root must be set")
	}
	if !filepath.IsAbs(c.StorageRoot) {
		return fmt.Errorf("storage_root must be absolute: %s", c.StorageRoot)
	}

	if c.EmptyFolders.MaxDepth < 0 {
		return fmt.Errorf("empty_folders.max_depth must be >= 0")
	}

	if c.Apps.MinScore < 0 || c.Apps.MinScore > 100 {
		return fmt.Errorf("apps.min_score must be between 0 and 100")
	}

	for _, pattern := range c.ExcludePatterns {
		if err := security.ValidateGlobPattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	for _, path := range c.WhitelistPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("whitelist path must be absolute: %s", path)
		}
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	if c.Daemon != nil {
		if err := c.Daemon.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (d *DaemonConfig) validate() error {
	names := make(map[string]bool)
	for _, s := range d.Schedules {
		if s.Name == "" {
			return fmt.Errorf("daemon schedule without a name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate daemon schedule %q", s.Name)
		}
		names[s.Name] = true

		if strings.TrimSpace(s.Schedule) == "" {
			return fmt.Errorf("schedule %s: cron expression is empty", s.Name)
		}
		switch s.Check {
		case CheckJunk, CheckRAM:
		default:
			return fmt.Errorf("schedule %s: unknown check %q", s.Name, s.Check)
		}
		if s.MinAvailablePercent < 0 || s.MinAvailablePercent > 100 {
			return fmt.Errorf("schedule %s: min_available_percent must be between 0 and 100", s.Name)
		}
	}
	return nil
}

// ResolvePath resolves a storage-relative path against StorageRoot
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.StorageRoot, p)
}

// ExpandDirs resolves and glob-expands a list of storage-relative directories.
// Patterns that match nothing are dropped.
func (c *Config) ExpandDirs(dirs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range dirs {
		p := c.ResolvePath(d)
		matches := []string{p}
		if strings.ContainsAny(p, "*?[") {
			var err error
			matches, err = filepath.Glob(p)
			if err != nil {
				continue
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// GetConfigDir returns the directory holding config, database and manifests
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "cleaner-toolbox"), nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
