package config

import "path/filepath"

// DefaultStorageRoot is the primary shared storage volume on Android
const DefaultStorageRoot = "/storage/emulated/0"

// DefaultEmptyFolderDepth caps the empty-folder descent
const DefaultEmptyFolderDepth = 6

// GetDefault returns the default configuration
func GetDefault() *Config {
	dataDir := ".cleaner-toolbox"
	if dir, err := GetConfigDir(); err == nil {
		dataDir = dir
	}

	return &Config{
		StorageRoot:  DefaultStorageRoot,
		DatabasePath: filepath.Join(dataDir, "toolbox.db"),
		Categories: Categories{
			Junk:        true,
			ObsoleteAPK: true,
			Temp:        true,
			Log:         true,
			Cache:       true,
		},
		Sources: Sources{
			MediaIndex: true,
			AppCacheDirs: []string{
				"Android/data/*/cache",
			},
			ObbDirs: []string{
				"Android/obb",
			},
		},
		IncludeHidden: false,
		ExcludePatterns: []string{
			"*.keep",
		},
		WhitelistPaths: []string{},
		ProtectedPaths: []string{},
		DryRun:         false,
		Verbose:        false,
		ManifestDir:    filepath.Join(dataDir, "manifests"),
		EmptyFolders: EmptyFoldersConfig{
			MaxDepth: DefaultEmptyFolderDepth,
		},
		Apps: AppsConfig{
			InventoryFile: filepath.Join(dataDir, "packages.yaml"),
			UsageStats:    false, // needs usage-access permission on the device
			IncludeSystem: false,
			MinScore:      40,
		},
		Contacts: ContactsConfig{
			File: filepath.Join(dataDir, "contacts.vcf"),
		},
		Device: DeviceConfig{
			ProcRoot: "/proc",
			SysRoot:  "/sys",
		},
	}
}

// GetDefaultDaemon returns a daemon section with the stock schedules
func GetDefaultDaemon() *DaemonConfig {
	dataDir := ".cleaner-toolbox"
	if dir, err := GetConfigDir(); err == nil {
		dataDir = dir
	}

	return &DaemonConfig{
		Enabled:       true,
		PidFile:       filepath.Join(dataDir, "toolboxd.pid"),
		LogFile:       filepath.Join(dataDir, "toolboxd.log"),
		LogLevel:      "info",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
		LogCompress:   true,
		MetricsAddr:   "",
		Schedules: []CheckSchedule{
			{
				Name:          "junk-reminder",
				Schedule:      "0 20 * * *",
				Check:         CheckJunk,
				JunkThreshold: "200MB",
			},
			{
				Name:                "ram-check",
				Schedule:            "*/30 * * * *",
				Check:               CheckRAM,
				MinAvailablePercent: 15,
			},
		},
		Notifications: NotificationConfig{
			Enabled:     false,
			OnJunk:      true,
			OnLowMemory: true,
			OnClean:     true,
			Webhook: WebhookConfig{
				Method: "POST",
			},
		},
	}
}
