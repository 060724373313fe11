package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/emptydir"
	"github.com/fenilsonani/cleaner-toolbox/internal/engine"
	"github.com/fenilsonani/cleaner-toolbox/internal/logging"
	"github.com/fenilsonani/cleaner-toolbox/internal/reporter"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
	outputFmt  string
	outputFile string
	dryRun     bool
	force      bool
	fileTypes  []string
	deleteDirs bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toolbox",
	Short: "Device storage cleaner and toolbox",
	Long: `Toolbox finds unnecessary files on a device's shared storage (junk, obsolete
APKs, temporary files, logs and caches) and deletes the ones you choose. It also
finds empty folders, unused apps and duplicate contacts, and reports RAM and
battery state.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan storage for unnecessary files",
	Long:  `Scans storage and reports what can be cleaned without making any changes.`,
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

		s, err := eng.Scan(cmd.Context())
		if err != nil {
			return err
		}
		result := s.State().Result()
		if len(fileTypes) > 0 {
			types, err := scanner.ParseFileTypes(fileTypes)
			if err != nil {
				return err
			}
			result = result.Filter(types)
			result.Errors = s.State().Result().Errors
		}

		if outputFile != "" {
			if err := reporter.SaveToFile(result, outputFile, rptr.Format()); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Printf("Report saved to: %s\n", outputFile)
			return nil
		}

		return rptr.Report(result)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete unnecessary files",
	Long: `Scans storage and deletes the unnecessary files of the selected types.
Every type is selected unless --type is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if cmd.Flags().Changed("dry-run") {
			eng.Config.DryRun = dryRun
		}

		types := scanner.AllFileTypes()
		if len(fileTypes) > 0 {
			if types, err = scanner.ParseFileTypes(fileTypes); err != nil {
				return err
			}
		}

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		if !rptr.Structured() {
			fmt.Println("Scanning storage...")
		}
		s, err := eng.Scan(cmd.Context())
		if err != nil {
			return err
		}

		selected := s.State().Result().Filter(types)
		if selected.TotalCount == 0 {
			if !rptr.Structured() {
				fmt.Println("✨ No unnecessary files found. Storage is already clean!")
			}
			return nil
		}

		if !rptr.Structured() {
			if err := reporter.New(os.Stdout, reporter.FormatSummary).Report(selected); err != nil {
				return err
			}
			// Dry runs report blocked files in the clean result instead
			if !eng.Config.DryRun {
				paths := make([]string, len(selected.Files))
				for i, f := range selected.Files {
					paths[i] = f.Path
				}
				if err := rptr.ReportAccess(cleaner.AnalyzeAccess(paths, nil)); err != nil {
					return err
				}
			}
		}

		if !force && !eng.Config.DryRun {
			if !confirm("\nProceed with cleanup? (y/N): ") {
				fmt.Println("Cleanup cancelled")
				return nil
			}
		}

		result := eng.NewCleaner(cmd.Context()).Delete(cmd.Context(), s.State(), types)
		return rptr.ReportClean(result)
	},
}

var emptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Find empty folders",
	Long: `Lists folders under the storage root that have no entries at all. A folder
whose only content is an empty folder is not listed until that child is gone,
so run again after --delete to clear nested empty folders.`,
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

		folders, err := eng.EmptyFinder(cmd.Context()).Find(cmd.Context(), eng.Config.StorageRoot)
		if err != nil {
			return err
		}

		var deleted *emptydir.DeleteResult
		if deleteDirs && len(folders) > 0 {
			if force || confirm(fmt.Sprintf("Delete %d empty folders? (y/N): ", len(folders))) {
				deleted = emptydir.Delete(folders)
			}
		}

		return rptr.ReportEmptyFolders(folders, deleted)
	},
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Review and clean interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if cmd.Flags().Changed("dry-run") {
			eng.Config.DryRun = dryRun
		}

		return ui.RunInteractive(cmd.Context(), eng, eng.Config.DryRun)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "format", "o", "summary", "output format (summary, table, json, yaml)")

	scanCmd.Flags().StringSliceVarP(&fileTypes, "type", "t", nil, "only report these types (junk, obsolete_apk, temp, log, cache)")
	scanCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")

	cleanCmd.Flags().StringSliceVarP(&fileTypes, "type", "t", nil, "only delete these types (junk, obsolete_apk, temp, log, cache)")
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without deleting")
	cleanCmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompts")

	emptyCmd.Flags().BoolVar(&deleteDirs, "delete", false, "delete the empty folders found")
	emptyCmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompts")

	uiCmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate deletions")

	rootCmd.AddCommand(scanCmd, cleanCmd, emptyCmd, uiCmd)
	rootCmd.AddCommand(appsCmd, contactsCmd, statusCmd, indexCmd, historyCmd, prefsCmd, configCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logging.NewCLI(cfg.Verbose)
}

func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.Open(cfg, newLogger(cfg))
}

func newReporter() (*reporter.Reporter, error) {
	format, err := reporter.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	return reporter.New(os.Stdout, format), nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
