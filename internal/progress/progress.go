package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseCleaning Phase = "cleaning"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// ScanProgress represents progress during scanning
type ScanProgress struct {
	Phase        Phase
	Source       string
	FilesFound   int
	TotalSize    int64
	SourcesTotal int
	SourcesDone  int
	Percent      int
	StartTime    time.Time
	Error        error
}

// CleanProgress represents progress during cleanup
type CleanProgress struct {
	Phase        Phase
	CurrentFile  string
	Processed    int
	TotalFiles   int
	DeletedFiles int
	DeletedSize  int64
	FailedFiles  int
	Percent      int
	StartTime    time.Time
	Error        error
}

// ProgressReporter provides thread-safe progress reporting
type ProgressReporter struct {
	scanProgress  *ScanProgress
	cleanProgress *CleanProgress
	mu            sync.RWMutex
	listeners     []chan interface{}
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (pr *ProgressReporter) Subscribe() <-chan interface{} {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	ch := make(chan interface{}, 10)
	pr.listeners = append(pr.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (pr *ProgressReporter) Unsubscribe(ch <-chan interface{}) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for i, listener := range pr.listeners {
		if listener == ch {
			close(listener)
			pr.listeners = append(pr.listeners[:i], pr.listeners[i+1:]...)
			return
		}
	}
}

// UpdateScanProgress updates scan progress and notifies listeners
func (pr *ProgressReporter) UpdateScanProgress(update *ScanProgress) {
	pr.mu.Lock()
	pr.scanProgress = update
	pr.mu.Unlock()

	pr.notify(update)
}

// UpdateCleanProgress updates clean progress and notifies listeners
func (pr *ProgressReporter) UpdateCleanProgress(update *CleanProgress) {
	pr.mu.Lock()
	pr.cleanProgress = update
	pr.mu.Unlock()

	pr.notify(update)
}

// notify fans an update out without blocking the worker.
// The read lock is held while sending so Unsubscribe cannot close a channel mid-send.
func (pr *ProgressReporter) notify(update interface{}) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	for _, listener := range pr.listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// GetScanProgress returns the current scan progress
func (pr *ProgressReporter) GetScanProgress() *ScanProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.scanProgress
}

// GetCleanProgress returns the current clean progress
func (pr *ProgressReporter) GetCleanProgress() *CleanProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.cleanProgress
}

// FormatScanProgress returns a human-readable scan progress string
func FormatScanProgress(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Scanning %s... %d%% - found %d files (%s) [%s]",
			p.Source,
			p.Percent,
			p.FilesFound,
			utils.FormatBytes(p.TotalSize),
			FormatDuration(elapsed))
	case PhaseComplete:
		return fmt.Sprintf("Scan complete: %d files (%s) in %s",
			p.FilesFound,
			utils.FormatBytes(p.TotalSize),
			FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Scan error: %v", p.Error)
	default:
		return "Scanning..."
	}
}

// FormatCleanProgress returns a human-readable clean progress string
func FormatCleanProgress(p *CleanProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseCleaning:
		failed := ""
		if p.FailedFiles > 0 {
			failed = fmt.Sprintf(", %d failed", p.FailedFiles)
		}
		return fmt.Sprintf("Cleaning... %d/%d files (%d%%) - %s freed%s",
			p.Processed,
			p.TotalFiles,
			p.Percent,
			utils.FormatBytes(p.DeletedSize),
			failed)
	case PhaseComplete:
		return fmt.Sprintf("Cleanup complete: %d files deleted (%s) in %s",
			p.DeletedFiles,
			utils.FormatBytes(p.DeletedSize),
			FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Cleanup error: %v", p.Error)
	default:
		return "Preparing cleanup..."
	}
}

// Percent returns done*100/total, 0 when total is 0
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
