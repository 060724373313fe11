package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// ScanViewModel handles the scanning progress view
type ScanViewModel struct {
	ctx       context.Context
	svc       Service
	spinner   spinner.Model
	bar       progress.Model
	startTime time.Time

	source      string
	sourcesDone int
	sourcesAll  int
	percent     int
	filesFound  int
	totalSize   int64

	updates <-chan interface{}
}

// scanStartedMsg hands the scanner and its progress feed back to Update
type scanStartedMsg struct {
	scanner *scanner.Scanner
	updates <-chan interface{}
}

// NewScanViewModel creates a new scan view model
func NewScanViewModel(ctx context.Context, svc Service) *ScanViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	return &ScanViewModel{
		ctx:       ctx,
		svc:       svc,
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
	}
}

// Init initializes the scan view
func (m *ScanViewModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startScan,
	)
}

// Update handles messages
func (m *ScanViewModel) Update(msg tea.Msg) (*ScanViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 20), 80)

	case scanStartedMsg:
		m.updates = msg.updates
		return m, tea.Batch(
			m.runScan(msg.scanner, msg.updates),
			waitForUpdate(msg.updates),
		)

	case ScanProgressMsg:
		p := msg.Progress
		m.source = p.Source
		m.sourcesDone = p.SourcesDone
		m.sourcesAll = p.SourcesTotal
		m.percent = p.Percent
		m.filesFound = p.FilesFound
		m.totalSize = p.TotalSize
		return m, waitForUpdate(m.updates)
	}

	return m, nil
}

// View renders the scan view
func (m *ScanViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Scanning Storage"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" Scanning... ")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("(%s)", time.Since(m.startTime).Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n\n")

	if m.source != "" {
		b.WriteString(styles.DimStyle.Render("Source: "))
		b.WriteString(styles.FilePathStyle.Render(truncatePath(m.source, 60)))
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf(" (%d/%d)", m.sourcesDone, m.sourcesAll)))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("Found: %d files, %s",
		m.filesFound, utils.FormatBytes(m.totalSize))))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press ctrl+c to cancel"))

	return b.String()
}

// startScan builds the scanner and subscribes to its progress before
// anything is published
func (m *ScanViewModel) startScan() tea.Msg {
	s, err := m.svc.NewScanner(m.ctx)
	if err != nil {
		return ScanCompleteMsg{Err: fmt.Errorf("failed to prepare scan: %w", err)}
	}
	return scanStartedMsg{scanner: s, updates: s.Subscribe()}
}

// runScan scans on the command goroutine and closes the progress feed when
// done so the pending listener returns
func (m *ScanViewModel) runScan(s *scanner.Scanner, updates <-chan interface{}) tea.Cmd {
	return func() tea.Msg {
		s.ScanDevice(m.ctx)
		s.GetProgressReporter().Unsubscribe(updates)
		return ScanCompleteMsg{State: s.State(), Err: s.State().Err()}
	}
}
