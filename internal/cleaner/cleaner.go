package cleaner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/progress"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/security"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
)

// IndexDeleter removes index-backed files by content URI. Forget drops the
// row of a file removed directly.
type IndexDeleter interface {
	Delete(ctx context.Context, uri string) error
	Forget(ctx context.Context, path string) error
}

// HistoryRecorder persists a finished clean run
type HistoryRecorder interface {
	RecordClean(ctx context.Context, rec *store.CleanRecord) (string, error)
}

// CleanResult represents the result of a clean operation
type CleanResult struct {
	ID            string
	Types         []scanner.FileType
	DeletedFiles  []string
	DeletedSize   int64
	Failed        int
	KeptFiles     []string // still on disk after the attempt
	SkippedReason map[string]string
	Errors        []*DeletionError
	DryRun        bool
	Access        *AccessReport // dry runs only
	ManifestPath  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Cleaner deletes scanned files best-effort, one at a time
type Cleaner struct {
	config           *config.Config
	validator        *security.PathValidator
	index            IndexDeleter
	history          HistoryRecorder
	progressReporter *progress.ProgressReporter
	logger           *zap.Logger
}

// New creates a new Cleaner
func New(cfg *config.Config, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}

	validator := security.NewStorageValidator(cfg.StorageRoot)
	for _, p := range cfg.ProtectedPaths {
		validator.AddProtectedPath(p)
	}

	return &Cleaner{
		config:           cfg,
		validator:        validator,
		progressReporter: progress.NewProgressReporter(),
		logger:           logger,
	}
}

// SetIndex routes URI-backed deletions through the media index
func (c *Cleaner) SetIndex(ix IndexDeleter) {
	c.index = ix
}

// SetHistory records every run into the clean history
func (c *Cleaner) SetHistory(h HistoryRecorder) {
	c.history = h
}

// SetProgressReporter sets a custom progress reporter
func (c *Cleaner) SetProgressReporter(pr *progress.ProgressReporter) {
	c.progressReporter = pr
}

// GetProgressReporter returns the cleaner's progress reporter
func (c *Cleaner) GetProgressReporter() *progress.ProgressReporter {
	return c.progressReporter
}

// Delete removes every file in state whose type is selected.
// Each deletion is independent. Afterwards a file stays in state only if its
// path still exists, whatever the deletion call reported.
func (c *Cleaner) Delete(ctx context.Context, state *scanner.State, selected []scanner.FileType) *CleanResult {
	targets := state.FilesOfType(selected)
	result := &CleanResult{
		ID:            uuid.NewString(),
		Types:         selected,
		SkippedReason: make(map[string]string),
		DryRun:        c.config.DryRun,
		StartedAt:     time.Now(),
	}
	manifest := NewDeletionManifest()
	total := len(targets)

	c.reportCleanProgress(progress.PhaseCleaning, "", 0, total, result, nil)

	var access map[string]accessState
	if result.DryRun {
		result.Access, access = c.analyze(targets)
	}

	for i, file := range targets {
		if err := ctx.Err(); err != nil {
			state.SetErr(err)
			c.reportCleanProgress(progress.PhaseError, "", i, total, result, err)
			break
		}

		if result.DryRun {
			c.simulateOne(file, access[file.Path], result)
		} else {
			c.deleteOne(ctx, state, file, result, manifest)
		}

		state.SetProgress(progress.Percent(i+1, total))
		c.reportCleanProgress(progress.PhaseCleaning, file.Path, i+1, total, result, nil)
	}

	result.FinishedAt = time.Now()

	if result.Failed > 0 && !result.DryRun {
		state.SetErr(fmt.Errorf("%d of %d deletions failed", result.Failed, total))
	}

	if !result.DryRun && len(manifest.Files) > 0 && c.config.ManifestDir != "" {
		path := filepath.Join(c.config.ManifestDir, fmt.Sprintf("manifest-%s.txt", result.ID))
		if err := manifest.Save(path); err != nil {
			c.logger.Warn("failed to save deletion manifest", zap.Error(err))
		} else {
			result.ManifestPath = path
		}
	}

	c.record(ctx, result)

	c.logger.Info("clean finished",
		zap.String("id", result.ID),
		zap.Int("deleted", len(result.DeletedFiles)),
		zap.Int("failed", result.Failed),
		zap.Int64("bytes", result.DeletedSize),
		zap.Bool("dry_run", result.DryRun))

	c.reportCleanProgress(progress.PhaseComplete, "", total, total, result, nil)

	return result
}

func (c *Cleaner) deleteOne(ctx context.Context, state *scanner.State, file scanner.UnnecessaryFile, result *CleanResult, manifest *DeletionManifest) {
	err := c.validator.ValidatePathForDeletion(file.Path)
	if err == nil {
		err = IsSafeToDelete(file.Path)
	}

	if err != nil {
		delErr := CategorizeError(file.Path, err)
		delErr.Reason = ErrorInvalidPath
		c.fail(result, delErr)
	} else {
		var deleteErr error
		if file.URI != "" && c.index != nil {
			deleteErr = c.index.Delete(ctx, file.URI)
		} else {
			deleteErr = os.Remove(file.Path)
			if deleteErr == nil && c.index != nil {
				if err := c.index.Forget(ctx, file.Path); err != nil {
					c.logger.Warn("failed to drop index row", zap.String("path", file.Path), zap.Error(err))
				}
			}
		}
		if deleteErr != nil {
			c.fail(result, CategorizeError(file.Path, deleteErr))
		} else {
			result.DeletedFiles = append(result.DeletedFiles, file.Path)
			result.DeletedSize += file.Size
			manifest.Add(file.Path, file.Size, file.Type.String())
		}
	}

	// The disk is the source of truth for what stays listed
	if _, statErr := os.Lstat(file.Path); statErr == nil {
		result.KeptFiles = append(result.KeptFiles, file.Path)
	} else {
		state.Remove(file.Path)
	}
}

type accessState int

const (
	accessOK accessState = iota
	accessBlocked
	accessMissing
)

// analyze runs the up-front access check over the dry-run targets
func (c *Cleaner) analyze(targets []scanner.UnnecessaryFile) (*AccessReport, map[string]accessState) {
	paths := make([]string, len(targets))
	sizes := make(map[string]int64, len(targets))
	for i, f := range targets {
		paths[i] = f.Path
		sizes[f.Path] = f.Size
	}

	report := AnalyzeAccess(paths, func(p string) int64 { return sizes[p] })
	states := make(map[string]accessState, len(targets))
	for _, p := range report.Blocked {
		states[p] = accessBlocked
	}
	for _, p := range report.Missing {
		states[p] = accessMissing
	}
	return report, states
}

// simulateOne predicts the outcome of deleteOne without touching the disk
func (c *Cleaner) simulateOne(file scanner.UnnecessaryFile, access accessState, result *CleanResult) {
	switch {
	case c.validator.IsProtectedPath(file.Path):
		c.fail(result, &DeletionError{Path: file.Path, Reason: ErrorInvalidPath, Original: fmt.Errorf("protected path")})
	case access == accessBlocked:
		c.fail(result, &DeletionError{Path: file.Path, Reason: ErrorPermissionDenied, Original: fs.ErrPermission})
	case access == accessMissing:
		c.fail(result, &DeletionError{Path: file.Path, Reason: ErrorFileNotFound, Original: fs.ErrNotExist})
	default:
		result.DeletedFiles = append(result.DeletedFiles, file.Path)
		result.DeletedSize += file.Size
	}
}

func (c *Cleaner) fail(result *CleanResult, delErr *DeletionError) {
	result.Failed++
	result.Errors = append(result.Errors, delErr)
	result.SkippedReason[delErr.Path] = delErr.UserMessage()
	c.logger.Debug("delete failed", zap.String("path", delErr.Path), zap.Error(delErr.Original))
}

func (c *Cleaner) record(ctx context.Context, result *CleanResult) {
	if c.history == nil {
		return
	}

	types := make([]string, len(result.Types))
	for i, t := range result.Types {
		types[i] = t.String()
	}

	// Recording must survive a cancelled clean
	_, err := c.history.RecordClean(context.WithoutCancel(ctx), &store.CleanRecord{
		ID:           result.ID,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		Deleted:      len(result.DeletedFiles),
		Failed:       result.Failed,
		BytesFreed:   result.DeletedSize,
		Types:        types,
		DryRun:       result.DryRun,
		ManifestPath: result.ManifestPath,
	})
	if err != nil {
		c.logger.Warn("failed to record clean history", zap.Error(err))
	}
}

// reportCleanProgress reports clean progress to listeners
func (c *Cleaner) reportCleanProgress(phase progress.Phase, currentFile string, processed, total int, result *CleanResult, err error) {
	if c.progressReporter == nil {
		return
	}

	c.progressReporter.UpdateCleanProgress(&progress.CleanProgress{
		Phase:        phase,
		CurrentFile:  currentFile,
		Processed:    processed,
		TotalFiles:   total,
		DeletedFiles: len(result.DeletedFiles),
		DeletedSize:  result.DeletedSize,
		FailedFiles:  result.Failed,
		Percent:      progress.Percent(processed, total),
		StartTime:    result.StartedAt,
		Error:        err,
	})
}
