package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/cleaner-toolbox/internal/apps"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/contacts"
	"github.com/fenilsonani/cleaner-toolbox/internal/daemon"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/reporter"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

var (
	inventoryFile string
	contactsFile  string
	minScore      int
	historyLimit  int
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List apps that are likely unused",
	Long: `Scores installed apps by size, last use and install age from a package
inventory and lists the ones worth uninstalling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rptr, err := newReporter()
		if err != nil {
			return err
		}

		path := cfg.Apps.InventoryFile
		if inventoryFile != "" {
			path = inventoryFile
		}
		inv, err := apps.LoadInventory(path)
		if err != nil {
			return err
		}

		opts := apps.Options{
			UsageAvailable: cfg.Apps.UsageStats,
			IncludeSystem:  cfg.Apps.IncludeSystem,
			MinScore:       cfg.Apps.MinScore,
		}
		if cmd.Flags().Changed("min-score") {
			opts.MinScore = minScore
		}

		return rptr.ReportApps(apps.Unused(inv.Packages, opts), opts.UsageAvailable)
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Find contacts that share a phone number",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rptr, err := newReporter()
		if err != nil {
			return err
		}

		path := cfg.Contacts.File
		if contactsFile != "" {
			path = contactsFile
		}
		list, err := contacts.Load(path)
		if err != nil {
			return err
		}

		return rptr.ReportContacts(len(list), contacts.FindDuplicates(list))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show memory, battery, index and last clean",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		status := &reporter.Status{StorageRoot: eng.Config.StorageRoot}

		if mem, err := eng.Device().ReadMemory(); err == nil {
			status.Memory = &mem
		} else {
			eng.Logger.Debug("memory unavailable", zap.Error(err))
		}

		if bat, err := eng.Device().ReadBattery(); err == nil {
			status.Battery = &bat
		} else if !errors.Is(err, device.ErrNoBattery) {
			return err
		}

		if status.MediaFiles, status.MediaSize, err = eng.Store.CountMedia(ctx); err != nil {
			return err
		}

		history, err := eng.Store.ListHistory(ctx, 1)
		if err != nil {
			return err
		}
		if len(history) > 0 {
			status.LastClean = history[0]
		}

		if status.Preferences, err = eng.Store.ListPrefs(ctx); err != nil {
			return err
		}

		if err := rptr.ReportStatus(status); err != nil {
			return err
		}

		if !rptr.Structured() && eng.Config.Daemon != nil {
			state := "stopped"
			if daemon.ProcessRunning(eng.Config.Daemon.PidFile) {
				state = "running"
			}
			fmt.Printf("Daemon: %s\n", state)
		}
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the media index",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		stats, err := eng.RefreshIndex(cmd.Context())
		if err != nil {
			return err
		}

		count, size, err := eng.Store.CountMedia(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d files (%s), pruned %d stale entries", stats.Indexed, utils.FormatBytes(size), stats.Pruned)
		if stats.Errors > 0 {
			fmt.Printf(", %d unreadable", stats.Errors)
		}
		fmt.Printf("\nIndex holds %d files\n", count)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past clean runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		records, err := eng.Store.ListHistory(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return rptr.ReportHistory(records)
	},
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change stored preferences",
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		prefs, err := eng.Store.ListPrefs(cmd.Context())
		if err != nil {
			return err
		}
		return rptr.ReportPrefs(prefs)
	},
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkPrefKey(args[0]); err != nil {
			return err
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		def := prefDefault(eng.Config, args[0])
		v, err := eng.Store.GetBool(cmd.Context(), args[0], def)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %t\n", args[0], v)
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change one preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkPrefKey(args[0]); err != nil {
			return err
		}
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: want true or false", args[1])
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Store.SetBool(cmd.Context(), args[0], v); err != nil {
			return err
		}
		fmt.Printf("%s = %t\n", args[0], v)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}

		cfg := config.GetDefault()
		cfg.Daemon = config.GetDefaultDaemon()
		cfg.Daemon.Enabled = false
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Printf("Config written to: %s\n", path)
		return nil
	},
}

func init() {
	appsCmd.Flags().StringVar(&inventoryFile, "inventory", "", "package inventory file (overrides config)")
	appsCmd.Flags().IntVar(&minScore, "min-score", 0, "only list apps scoring at least this much")

	contactsCmd.Flags().StringVar(&contactsFile, "file", "", "exported contacts (.vcf or .csv, overrides config)")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")

	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	prefsCmd.AddCommand(prefsListCmd, prefsGetCmd, prefsSetCmd)
	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd)
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func checkPrefKey(key string) error {
	for _, k := range store.KnownPrefs() {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("unknown preference %q (known: %v)", key, store.KnownPrefs())
}

// prefDefault mirrors the fallbacks the engine and daemon use for unset keys
func prefDefault(cfg *config.Config, key string) bool {
	switch key {
	case store.PrefIncludeHidden:
		return cfg.IncludeHidden
	case store.PrefAppCache:
		return len(cfg.Sources.AppCacheDirs) > 0
	case store.PrefObb:
		return len(cfg.Sources.ObbDirs) > 0
	default:
		return true
	}
}
