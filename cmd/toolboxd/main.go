package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/daemon"
	"github.com/fenilsonani/cleaner-toolbox/internal/engine"
	"github.com/fenilsonani/cleaner-toolbox/internal/logging"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath string
	foreground bool
	testConfig bool
	trigger    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toolboxd",
	Short: "Scheduled junk and RAM checks",
	Long: `toolboxd runs the configured checks on their cron schedules: a junk check
that reminds (and optionally cleans) when unnecessary files pass a threshold,
and a RAM check that warns when available memory runs low.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "log to stderr instead of the log file")
	rootCmd.Flags().BoolVar(&testConfig, "test-config", false, "test configuration and exit")
	rootCmd.Flags().StringVar(&trigger, "trigger", "", "run the named check once and exit")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if cfg.Daemon == nil || !cfg.Daemon.Enabled {
		fmt.Fprintln(os.Stderr, "Daemon not enabled in configuration")
		fmt.Fprintln(os.Stderr, "Add the following to your config file:")
		fmt.Fprintln(os.Stderr, "daemon:")
		fmt.Fprintln(os.Stderr, "  enabled: true")
		fmt.Fprintln(os.Stderr, "  schedules:")
		fmt.Fprintln(os.Stderr, "    - name: junk-reminder")
		fmt.Fprintln(os.Stderr, "      schedule: \"0 20 * * *\"")
		fmt.Fprintln(os.Stderr, "      check: junk")
		return fmt.Errorf("daemon disabled")
	}

	if len(cfg.Daemon.Schedules) == 0 {
		return fmt.Errorf("no schedules configured, add at least one schedule")
	}

	if testConfig {
		fmt.Println("Configuration is valid")
		fmt.Printf("Schedules: %d\n", len(cfg.Daemon.Schedules))
		for _, sched := range cfg.Daemon.Schedules {
			fmt.Printf("  - %s: %s (%s)\n", sched.Name, sched.Schedule, sched.Check)
		}
		return nil
	}

	logger, err := newLogger(cfg.Daemon)
	if err != nil {
		return err
	}
	defer logger.Sync()

	eng, err := engine.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	d, err := daemon.New(eng, logger)
	if err != nil {
		return fmt.Errorf("creating daemon: %w", err)
	}

	if trigger != "" {
		return runOnce(cmd, d, cfg, trigger)
	}

	if daemon.ProcessRunning(cfg.Daemon.PidFile) {
		return fmt.Errorf("daemon is already running")
	}

	fmt.Println("Starting toolbox daemon...")
	return d.Start()
}

func runOnce(cmd *cobra.Command, d *daemon.Daemon, cfg *config.Config, name string) error {
	for _, sched := range cfg.Daemon.Schedules {
		if sched.Name == name {
			return d.RunCheck(cmd.Context(), &daemon.CheckJob{CheckSchedule: sched})
		}
	}
	return fmt.Errorf("no schedule named %q", name)
}

func newLogger(dc *config.DaemonConfig) (*zap.Logger, error) {
	if foreground {
		return logging.New(logging.Options{Level: dc.LogLevel})
	}
	return logging.New(logging.Options{
		Level:      dc.LogLevel,
		JSON:       true,
		File:       dc.LogFile,
		MaxSizeMB:  dc.LogMaxSizeMB,
		MaxBackups: dc.LogMaxBackups,
		MaxAgeDays: dc.LogMaxAgeDays,
		Compress:   dc.LogCompress,
	})
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}
