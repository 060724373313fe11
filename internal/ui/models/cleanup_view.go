package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// CleanupViewModel handles the cleanup progress view
type CleanupViewModel struct {
	ctx       context.Context
	svc       Service
	state     *scanner.State
	types     []scanner.FileType
	spinner   spinner.Model
	bar       progress.Model
	startTime time.Time

	current   string
	processed int
	total     int
	deleted   int
	freed     int64
	failed    int

	updates <-chan interface{}
}

type cleanStartedMsg struct {
	cleaner *cleaner.Cleaner
	updates <-chan interface{}
}

// NewCleanupViewModel creates a new cleanup view model
func NewCleanupViewModel(ctx context.Context, svc Service, state *scanner.State, types []scanner.FileType) *CleanupViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	return &CleanupViewModel{
		ctx:       ctx,
		svc:       svc,
		state:     state,
		types:     types,
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
		total:     len(state.FilesOfType(types)),
	}
}

// Init initializes the cleanup view
func (m *CleanupViewModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startClean,
	)
}

// Update handles messages
func (m *CleanupViewModel) Update(msg tea.Msg) (*CleanupViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 20), 80)

	case cleanStartedMsg:
		m.updates = msg.updates
		return m, tea.Batch(
			m.runClean(msg.cleaner, msg.updates),
			waitForUpdate(msg.updates),
		)

	case CleanProgressMsg:
		p := msg.Progress
		m.current = p.CurrentFile
		m.processed = p.Processed
		m.total = p.TotalFiles
		m.deleted = p.DeletedFiles
		m.freed = p.DeletedSize
		m.failed = p.FailedFiles
		return m, waitForUpdate(m.updates)
	}

	return m, nil
}

// View renders the cleanup view
func (m *CleanupViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Cleaning Up"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" Deleting files... ")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("(%s)", time.Since(m.startTime).Round(time.Second))))
	b.WriteString("\n\n")

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.processed) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n\n")

	if m.current != "" {
		b.WriteString(styles.DimStyle.Render("Current: "))
		b.WriteString(styles.FilePathStyle.Render(truncatePath(m.current, 60)))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Progress: %d/%d files, %s freed", m.processed, m.total, utils.FormatBytes(m.freed)))
	if m.failed > 0 {
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf(", %d failed", m.failed)))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press ctrl+c to stop after the current file"))

	return b.String()
}

func (m *CleanupViewModel) startClean() tea.Msg {
	c := m.svc.NewCleaner(m.ctx)
	return cleanStartedMsg{cleaner: c, updates: c.GetProgressReporter().Subscribe()}
}

func (m *CleanupViewModel) runClean(c *cleaner.Cleaner, updates <-chan interface{}) tea.Cmd {
	return func() tea.Msg {
		result := c.Delete(m.ctx, m.state, m.types)
		c.GetProgressReporter().Unsubscribe(updates)
		return CleanupCompleteMsg{Result: result}
	}
}
