package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IGLOU-EU/go-wildcard"
	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/progress"
)

// State is the observable result of the last scan. It is written by the
// goroutine running ScanDevice or a Cleaner and read by any number of observers.
type State struct {
	mu       sync.RWMutex
	files    []UnnecessaryFile
	seen     map[string]bool
	progress int
	err      error
	scanning bool
}

// NewState returns an empty state
func NewState() *State {
	return &State{seen: make(map[string]bool)}
}

// Files returns a copy of the current file list
func (s *State) Files() []UnnecessaryFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UnnecessaryFile, len(s.files))
	copy(out, s.files)
	return out
}

// FilesOfType returns the files whose type is in types
func (s *State) FilesOfType(types []FileType) []UnnecessaryFile {
	want := typeSet(types)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UnnecessaryFile
	for _, f := range s.files {
		if want[f.Type] {
			out = append(out, f)
		}
	}
	return out
}

// Progress returns the last published percentage
func (s *State) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Err returns the error slot, nil when the last run had no failures
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Scanning reports whether a scan is in flight
func (s *State) Scanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// TotalSize sums the sizes of all files in the state
func (s *State) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, f := range s.files {
		total += f.Size
	}
	return total
}

// Result snapshots the state into a ScanResult
func (s *State) Result() *ScanResult {
	r := NewScanResult(s.Files())
	if err := s.Err(); err != nil {
		r.Errors = []error{err}
	}
	return r
}

// Remove drops the given paths from the state
func (s *State) Remove(paths ...string) {
	if len(paths) == 0 {
		return
	}
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.files[:0]
	for _, f := range s.files {
		if drop[f.Path] {
			delete(s.seen, f.Path)
			continue
		}
		kept = append(kept, f)
	}
	s.files = kept
}

// SetProgress publishes a percentage
func (s *State) SetProgress(p int) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// SetErr stores an error in the slot
func (s *State) SetErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *State) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.seen = make(map[string]bool)
	s.progress = 0
	s.err = nil
	s.scanning = true
}

func (s *State) finish() {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
}

// add appends f unless its path was already seen
func (s *State) add(f UnnecessaryFile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[f.Path] {
		return false
	}
	s.seen[f.Path] = true
	s.files = append(s.files, f)
	return true
}

// Scanner coordinates the scan sources into one de-duplicated file list
type Scanner struct {
	config           *config.Config
	sources          []Source
	state            *State
	enabled          map[FileType]bool
	progressReporter *progress.ProgressReporter
	logger           *zap.Logger
}

// New creates a new Scanner over the given sources, queried in order
func New(cfg *config.Config, sources []Source, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		config:           cfg,
		sources:          sources,
		state:            NewState(),
		enabled:          enabledTypes(cfg),
		progressReporter: progress.NewProgressReporter(),
		logger:           logger,
	}
}

func enabledTypes(cfg *config.Config) map[FileType]bool {
	c := cfg.Categories
	return map[FileType]bool{
		Junk:        c.Junk,
		ObsoleteAPK: c.ObsoleteAPK,
		Temp:        c.Temp,
		Log:         c.Log,
		Cache:       c.Cache,
	}
}

// State returns the scanner's observable state
func (s *Scanner) State() *State {
	return s.state
}

// SetProgressReporter sets a custom progress reporter
func (s *Scanner) SetProgressReporter(pr *progress.ProgressReporter) {
	s.progressReporter = pr
}

// GetProgressReporter returns the scanner's progress reporter
func (s *Scanner) GetProgressReporter() *progress.ProgressReporter {
	return s.progressReporter
}

// Subscribe returns a channel of *progress.ScanProgress updates
func (s *Scanner) Subscribe() <-chan interface{} {
	return s.progressReporter.Subscribe()
}

// ScanDevice runs every source in order and fills the state.
// Source failures land in the error slot and the scan moves on to the next
// source. Only context cancellation stops the scan early.
func (s *Scanner) ScanDevice(ctx context.Context) {
	s.state.reset()
	defer s.state.finish()

	start := time.Now()
	total := len(s.sources)
	var failures []string

	for i, src := range s.sources {
		if ctx.Err() != nil {
			s.state.SetErr(ctx.Err())
			s.publish(progress.PhaseError, src.Name(), i, total, start, ctx.Err())
			return
		}

		candidates, err := src.List(ctx)
		if err != nil {
			s.logger.Warn("scan source failed", zap.String("source", src.Name()), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
			s.state.SetErr(fmt.Errorf("scan failed for %s", strings.Join(failures, "; ")))
		}

		added := 0
		for _, c := range candidates {
			if s.accept(c, src.Name()) {
				added++
			}
		}
		s.logger.Debug("scan source done",
			zap.String("source", src.Name()),
			zap.Int("candidates", len(candidates)),
			zap.Int("added", added))

		s.state.SetProgress(progress.Percent(i+1, total))
		s.publish(progress.PhaseScanning, src.Name(), i+1, total, start, nil)
	}

	s.state.SetProgress(100)
	s.publish(progress.PhaseComplete, "", total, total, start, nil)
}

// Scan runs ScanDevice and returns a snapshot of the result
func (s *Scanner) Scan(ctx context.Context) *ScanResult {
	s.ScanDevice(ctx)
	return s.state.Result()
}

func (s *Scanner) accept(c Candidate, source string) bool {
	fileType, ok := categorize(c)
	if !ok || !s.enabled[fileType] {
		return false
	}
	if s.isExcluded(c.Path) || s.isWhitelisted(c.Path) {
		return false
	}

	return s.state.add(UnnecessaryFile{
		Path:    c.Path,
		Name:    c.Name,
		Size:    c.Size,
		Type:    fileType,
		URI:     c.URI,
		ModTime: c.ModTime,
		Source:  source,
	})
}

// isExcluded checks exclude patterns against both the full path and the base name
func (s *Scanner) isExcluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range s.config.ExcludePatterns {
		if wildcard.Match(pattern, path) || wildcard.Match(pattern, base) {
			return true
		}
	}
	return false
}

func (s *Scanner) isWhitelisted(path string) bool {
	for _, w := range s.config.WhitelistPaths {
		w = filepath.Clean(w)
		if path == w || strings.HasPrefix(path, w+string(filepath.Separator)) {
			return true
		}
		if wildcard.Match(w, path) {
			return true
		}
	}
	return false
}

func (s *Scanner) publish(phase progress.Phase, source string, done, total int, start time.Time, err error) {
	s.progressReporter.UpdateScanProgress(&progress.ScanProgress{
		Phase:        phase,
		Source:       source,
		FilesFound:   len(s.state.Files()),
		TotalSize:    s.state.TotalSize(),
		SourcesTotal: total,
		SourcesDone:  done,
		Percent:      progress.Percent(done, total),
		StartTime:    start,
		Error:        err,
	})
}
