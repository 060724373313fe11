package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/cleaner-toolbox/internal/apps"
	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/contacts"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/emptydir"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	case "":
		return FormatSummary, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	now    func() time.Time
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
		now:    time.Now,
	}
}

// Format returns the reporter's output format
func (r *Reporter) Format() OutputFormat {
	return r.format
}

// Structured reports whether the format is machine readable
func (r *Reporter) Structured() bool {
	return r.format == FormatJSON || r.format == FormatYAML
}

func (r *Reporter) encode(v any) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(r.writer)
		defer encoder.Close()
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) timestamp() string {
	return r.now().Format(time.RFC3339)
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

type typeTotal struct {
	Type  scanner.FileType `json:"type" yaml:"type"`
	Label string           `json:"label" yaml:"label"`
	Files int              `json:"files" yaml:"files"`
	Size  int64            `json:"size" yaml:"size"`
}

func byType(result *scanner.ScanResult) []typeTotal {
	grouped := result.GroupByType()
	var out []typeTotal
	for _, t := range scanner.AllFileTypes() {
		g, ok := grouped[t]
		if !ok {
			continue
		}
		out = append(out, typeTotal{Type: t, Label: t.Label(), Files: g.TotalCount, Size: g.TotalSize})
	}
	return out
}

// Report generates a report from scan results
func (r *Reporter) Report(result *scanner.ScanResult) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(result)
	case FormatJSON, FormatYAML:
		return r.reportStructured(result)
	case FormatSummary:
		return r.reportSummary(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a summary report
func (r *Reporter) reportSummary(result *scanner.ScanResult) error {
	fmt.Fprintf(r.writer, "=== Scan Summary ===\n")
	fmt.Fprintf(r.writer, "Total Files: %d\n", result.TotalCount)
	fmt.Fprintf(r.writer, "Total Size: %s\n", utils.FormatBytes(result.TotalSize))

	if totals := byType(result); len(totals) > 0 {
		fmt.Fprintf(r.writer, "\nBreakdown by Type:\n")
		for _, t := range totals {
			fmt.Fprintf(r.writer, "  %-16s %5d files  %s\n", t.Label+":", t.Files, utils.FormatBytes(t.Size))
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(r.writer, "\nErrors: %d\n", len(result.Errors))
		for _, err := range result.Errors {
			fmt.Fprintf(r.writer, "  %v\n", err)
		}
	}

	return nil
}

// reportTable generates a table report
func (r *Reporter) reportTable(result *scanner.ScanResult) error {
	rows := make([][]string, 0, len(result.Files))
	for _, file := range result.Files {
		path := file.Path
		if len(path) > 60 {
			path = "..." + path[len(path)-57:]
		}
		rows = append(rows, []string{
			path,
			utils.FormatBytes(file.Size),
			file.Type.String(),
			file.ModTime.Format("2006-01-02 15:04"),
		})
	}

	fmt.Fprintln(r.writer, renderTable([]string{"Path", "Size", "Type", "Modified"}, rows))
	fmt.Fprintf(r.writer, "Total: %d files, %s\n", result.TotalCount, utils.FormatBytes(result.TotalSize))
	return nil
}

type scanReport struct {
	Timestamp          string                    `json:"timestamp" yaml:"timestamp"`
	TotalFiles         int                       `json:"total_files" yaml:"total_files"`
	TotalSize          int64                     `json:"total_size" yaml:"total_size"`
	TotalSizeFormatted string                    `json:"total_size_formatted" yaml:"total_size_formatted"`
	ByType             []typeTotal               `json:"by_type" yaml:"by_type"`
	Files              []scanner.UnnecessaryFile `json:"files" yaml:"files"`
	Errors             []string                  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (r *Reporter) reportStructured(result *scanner.ScanResult) error {
	report := scanReport{
		Timestamp:          r.timestamp(),
		TotalFiles:         result.TotalCount,
		TotalSize:          result.TotalSize,
		TotalSizeFormatted: utils.FormatBytes(result.TotalSize),
		ByType:             byType(result),
		Files:              result.Files,
	}
	if report.Files == nil {
		report.Files = []scanner.UnnecessaryFile{}
	}
	for _, err := range result.Errors {
		report.Errors = append(report.Errors, err.Error())
	}
	return r.encode(report)
}

type cleanReport struct {
	ID           string            `json:"id" yaml:"id"`
	DryRun       bool              `json:"dry_run" yaml:"dry_run"`
	Types        []string          `json:"types" yaml:"types"`
	Deleted      []string          `json:"deleted" yaml:"deleted"`
	BytesFreed   int64             `json:"bytes_freed" yaml:"bytes_freed"`
	Failed       int               `json:"failed" yaml:"failed"`
	Kept         []string          `json:"kept,omitempty" yaml:"kept,omitempty"`
	Skipped      map[string]string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Blocked      []string          `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	BlockedBytes int64             `json:"blocked_bytes,omitempty" yaml:"blocked_bytes,omitempty"`
	ManifestPath string            `json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`
	Duration     string            `json:"duration" yaml:"duration"`
}

// ReportClean writes the outcome of a clean run
func (r *Reporter) ReportClean(result *cleaner.CleanResult) error {
	if r.Structured() {
		report := cleanReport{
			ID:           result.ID,
			DryRun:       result.DryRun,
			Deleted:      result.DeletedFiles,
			BytesFreed:   result.DeletedSize,
			Failed:       result.Failed,
			Kept:         result.KeptFiles,
			Skipped:      result.SkippedReason,
			ManifestPath: result.ManifestPath,
			Duration:     result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
		}
		for _, t := range result.Types {
			report.Types = append(report.Types, t.String())
		}
		if result.Access != nil {
			report.Blocked = result.Access.Blocked
			report.BlockedBytes = result.Access.BlockedSize
		}
		if report.Deleted == nil {
			report.Deleted = []string{}
		}
		return r.encode(report)
	}

	verb := "Deleted"
	if result.DryRun {
		verb = "Would delete"
	}
	fmt.Fprintf(r.writer, "%s %d files, %s\n", verb, len(result.DeletedFiles), utils.FormatBytes(result.DeletedSize))

	if r.format == FormatTable && len(result.DeletedFiles) > 0 {
		rows := make([][]string, 0, len(result.DeletedFiles))
		for _, p := range result.DeletedFiles {
			rows = append(rows, []string{p})
		}
		fmt.Fprintln(r.writer, renderTable([]string{"Path"}, rows))
	}

	if result.Failed > 0 {
		fmt.Fprintf(r.writer, "Failed: %d\n", result.Failed)
		fmt.Fprint(r.writer, cleaner.FormatErrorSummary(result.Errors))
	}
	if len(result.KeptFiles) > 0 {
		fmt.Fprintf(r.writer, "Still on disk: %d\n", len(result.KeptFiles))
	}
	if result.Access != nil {
		r.writeBlocked(result.Access)
	}
	if result.ManifestPath != "" {
		fmt.Fprintf(r.writer, "Manifest: %s\n", result.ManifestPath)
	}
	return nil
}

// ReportAccess warns about files this process cannot unlink. It writes
// nothing when every file is deletable or the format is structured.
func (r *Reporter) ReportAccess(access *cleaner.AccessReport) error {
	if r.Structured() || access == nil {
		return nil
	}
	r.writeBlocked(access)
	return nil
}

func (r *Reporter) writeBlocked(access *cleaner.AccessReport) {
	if len(access.Blocked) == 0 {
		return
	}
	fmt.Fprintf(r.writer, "Blocked by permissions: %d files, %s\n",
		len(access.Blocked), utils.FormatBytes(access.BlockedSize))
	if r.format == FormatTable {
		for _, p := range access.Blocked {
			fmt.Fprintf(r.writer, "  %s\n", p)
		}
	}
}

// ReportEmptyFolders lists empty folders, and the deletion result when one is given
func (r *Reporter) ReportEmptyFolders(folders []emptydir.EmptyFolder, deleted *emptydir.DeleteResult) error {
	if r.Structured() {
		report := struct {
			Folders []emptydir.EmptyFolder `json:"folders" yaml:"folders"`
			Deleted []string               `json:"deleted,omitempty" yaml:"deleted,omitempty"`
			Failed  map[string]string      `json:"failed,omitempty" yaml:"failed,omitempty"`
		}{Folders: folders}
		if report.Folders == nil {
			report.Folders = []emptydir.EmptyFolder{}
		}
		if deleted != nil {
			report.Deleted = deleted.Deleted
			if len(deleted.Failed) > 0 {
				report.Failed = make(map[string]string, len(deleted.Failed))
				for p, err := range deleted.Failed {
					report.Failed[p] = err.Error()
				}
			}
		}
		return r.encode(report)
	}

	if len(folders) == 0 {
		fmt.Fprintln(r.writer, "No empty folders found")
		return nil
	}

	fmt.Fprintf(r.writer, "Empty folders: %d\n", len(folders))
	for _, f := range folders {
		fmt.Fprintf(r.writer, "  %s\n", f.Path)
	}
	if deleted != nil {
		fmt.Fprintf(r.writer, "Deleted: %d, failed: %d\n", len(deleted.Deleted), len(deleted.Failed))
	}
	return nil
}

// ReportApps lists scored apps
func (r *Reporter) ReportApps(list []apps.UnusedApp, usageAvailable bool) error {
	if r.Structured() {
		if list == nil {
			list = []apps.UnusedApp{}
		}
		return r.encode(struct {
			UsageStats bool             `json:"usage_stats" yaml:"usage_stats"`
			Apps       []apps.UnusedApp `json:"apps" yaml:"apps"`
		}{usageAvailable, list})
	}

	if !usageAvailable {
		fmt.Fprintln(r.writer, "Usage stats unavailable: scores use size and install age only")
	}
	if len(list) == 0 {
		fmt.Fprintln(r.writer, "No unused apps found")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, a := range list {
		name := a.Name
		if name == "" {
			name = a.Package
		}
		rows = append(rows, []string{
			name,
			a.Package,
			utils.FormatBytes(a.SizeBytes),
			fmt.Sprintf("%d", a.Score),
			string(a.Tier),
			a.Reason,
		})
	}
	fmt.Fprintln(r.writer, renderTable([]string{"App", "Package", "Size", "Score", "Tier", "Reason"}, rows))
	return nil
}

// ReportContacts lists duplicate contact groups
func (r *Reporter) ReportContacts(total int, groups []contacts.ContactDuplicateGroup) error {
	if r.Structured() {
		if groups == nil {
			groups = []contacts.ContactDuplicateGroup{}
		}
		return r.encode(struct {
			Contacts   int                              `json:"contacts" yaml:"contacts"`
			Duplicates []contacts.ContactDuplicateGroup `json:"duplicates" yaml:"duplicates"`
		}{total, groups})
	}

	fmt.Fprintf(r.writer, "Contacts: %d, duplicate numbers: %d\n", total, len(groups))
	for _, g := range groups {
		names := make([]string, len(g.Contacts))
		for i, c := range g.Contacts {
			names[i] = c.Name
		}
		fmt.Fprintf(r.writer, "  %s: %s\n", g.Number, strings.Join(names, ", "))
	}
	return nil
}

// Status is a device overview
type Status struct {
	StorageRoot string             `json:"storage_root" yaml:"storage_root"`
	Memory      *device.Memory     `json:"memory,omitempty" yaml:"memory,omitempty"`
	Battery     *device.Battery    `json:"battery,omitempty" yaml:"battery,omitempty"`
	MediaFiles  int                `json:"media_files" yaml:"media_files"`
	MediaSize   int64              `json:"media_size" yaml:"media_size"`
	LastClean   *store.CleanRecord `json:"last_clean,omitempty" yaml:"last_clean,omitempty"`
	Preferences []store.Preference `json:"preferences,omitempty" yaml:"preferences,omitempty"`
}

// ReportStatus writes the device overview
func (r *Reporter) ReportStatus(s *Status) error {
	if r.Structured() {
		return r.encode(s)
	}

	fmt.Fprintf(r.writer, "Storage: %s\n", s.StorageRoot)
	fmt.Fprintf(r.writer, "Indexed: %d files, %s\n", s.MediaFiles, utils.FormatBytes(s.MediaSize))

	if s.Memory != nil {
		fmt.Fprintf(r.writer, "Memory: %s of %s used (%.1f%%), %s available\n",
			utils.FormatBytes(int64(s.Memory.Used)),
			utils.FormatBytes(int64(s.Memory.Total)),
			s.Memory.UsedPercent,
			utils.FormatBytes(int64(s.Memory.Available)))
	} else {
		fmt.Fprintln(r.writer, "Memory: unavailable")
	}

	if s.Battery != nil {
		fmt.Fprintf(r.writer, "Battery: %d%% %s", s.Battery.Capacity, s.Battery.Status)
		if s.Battery.Health != "" {
			fmt.Fprintf(r.writer, ", health %s", s.Battery.Health)
		}
		fmt.Fprintf(r.writer, ", %.1f°C, %.2fV\n", s.Battery.TempC, s.Battery.VoltageV)
	} else {
		fmt.Fprintln(r.writer, "Battery: none")
	}

	if s.LastClean != nil {
		fmt.Fprintf(r.writer, "Last clean: %s, %d files, %s freed\n",
			s.LastClean.FinishedAt.Local().Format("2006-01-02 15:04"),
			s.LastClean.Deleted,
			utils.FormatBytes(s.LastClean.BytesFreed))
	}
	return nil
}

// ReportHistory lists past clean runs, newest first
func (r *Reporter) ReportHistory(records []*store.CleanRecord) error {
	if r.Structured() {
		if records == nil {
			records = []*store.CleanRecord{}
		}
		return r.encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(r.writer, "No clean history")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		mode := ""
		if rec.DryRun {
			mode = "dry-run"
		}
		rows = append(rows, []string{
			rec.FinishedAt.Local().Format("2006-01-02 15:04"),
			strings.Join(rec.Types, ","),
			fmt.Sprintf("%d", rec.Deleted),
			fmt.Sprintf("%d", rec.Failed),
			utils.FormatBytes(rec.BytesFreed),
			mode,
		})
	}
	fmt.Fprintln(r.writer, renderTable([]string{"When", "Types", "Deleted", "Failed", "Freed", ""}, rows))
	return nil
}

// ReportPrefs lists stored preferences
func (r *Reporter) ReportPrefs(prefs []store.Preference) error {
	if r.Structured() {
		if prefs == nil {
			prefs = []store.Preference{}
		}
		return r.encode(prefs)
	}
	for _, p := range prefs {
		fmt.Fprintf(r.writer, "%s = %t\n", p.Key, p.Value)
	}
	return nil
}

// SaveToFile saves the report to a file
func SaveToFile(result *scanner.ScanResult, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reporter := New(file, format)
	return reporter.Report(result)
}
