package models

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/progress"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
)

// ViewState represents the current view in the app
type ViewState int

const (
	ViewScanning ViewState = iota
	ViewCategorySelection
	ViewConfirmation
	ViewCleaning
	ViewSummary
	ViewHelp
)

// Service builds the scanner and cleaner the TUI drives.
// *engine.Engine satisfies it.
type Service interface {
	NewScanner(ctx context.Context) (*scanner.Scanner, error)
	NewCleaner(ctx context.Context) *cleaner.Cleaner
}

// AppModel is the root model for the interactive TUI
type AppModel struct {
	state         ViewState
	previousState ViewState

	ctx    context.Context
	cancel context.CancelFunc
	svc    Service
	dryRun bool

	// scan state shared by every view after the scan
	scanState *scanner.State
	selected  []scanner.FileType

	scanView     *ScanViewModel
	categoryView *CategoryViewModel
	confirmView  *ConfirmViewModel
	cleanupView  *CleanupViewModel
	summaryView  *SummaryViewModel

	width  int
	height int
	err    error
}

// NewAppModel creates a new app model. dryRun only changes the wording of
// the confirmation; the cleaner's own config decides what is deleted.
func NewAppModel(ctx context.Context, svc Service, dryRun bool) *AppModel {
	ctx, cancel := context.WithCancel(ctx)
	return &AppModel{
		state:  ViewScanning,
		ctx:    ctx,
		cancel: cancel,
		svc:    svc,
		dryRun: dryRun,
	}
}

// State returns the active view
func (m *AppModel) State() ViewState {
	return m.state
}

// Err returns the error that stopped the app, if any
func (m *AppModel) Err() error {
	return m.err
}

// Init starts scanning immediately
func (m *AppModel) Init() tea.Cmd {
	m.scanView = NewScanViewModel(m.ctx, m.svc)
	return m.scanView.Init()
}

// Update handles messages
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// cancel any running scan or clean; the cleaner stops between files
			m.cancel()
			if m.state != ViewCleaning {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.state == ViewHelp {
			m.state = m.previousState
			return m, nil
		}
		switch msg.String() {
		case "q":
			if m.state != ViewCleaning {
				m.cancel()
				return m, tea.Quit
			}
		case "?":
			m.previousState = m.state
			m.state = ViewHelp
			return m, nil
		case "esc":
			if m.state == ViewConfirmation {
				m.state = ViewCategorySelection
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ScanCompleteMsg:
		if msg.State == nil {
			m.err = msg.Err
			return m, nil
		}
		m.scanState = msg.State
		m.categoryView = NewCategoryViewModel(msg.State.Result(), m.width, m.height)
		m.state = ViewCategorySelection
		return m, nil

	case CategoriesSelectedMsg:
		m.selected = msg.Types
		m.confirmView = NewConfirmViewModel(m.scanState.Result().Filter(msg.Types), m.dryRun, m.width)
		m.state = ViewConfirmation
		return m, nil

	case ConfirmedMsg:
		m.cleanupView = NewCleanupViewModel(m.ctx, m.svc, m.scanState, m.selected)
		m.state = ViewCleaning
		return m, m.cleanupView.Init()

	case ReviewSelectionMsg:
		m.state = ViewCategorySelection
		return m, nil

	case CleanupCompleteMsg:
		m.summaryView = NewSummaryViewModel(msg.Result)
		m.state = ViewSummary
		return m, nil
	}

	return m.delegateUpdate(msg)
}

// delegateUpdate delegates the update to the current view
func (m *AppModel) delegateUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case ViewScanning:
		if m.scanView != nil {
			m.scanView, cmd = m.scanView.Update(msg)
		}
	case ViewCategorySelection:
		if m.categoryView != nil {
			m.categoryView, cmd = m.categoryView.Update(msg)
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			m.confirmView, cmd = m.confirmView.Update(msg)
		}
	case ViewCleaning:
		if m.cleanupView != nil {
			m.cleanupView, cmd = m.cleanupView.Update(msg)
		}
	case ViewSummary:
		if m.summaryView != nil {
			m.summaryView, cmd = m.summaryView.Update(msg)
		}
	}

	return m, cmd
}

// View renders the current view
func (m *AppModel) View() string {
	if m.err != nil {
		return styles.ErrorStyle.Render("Error: "+m.err.Error()) + "\n\nPress q to quit."
	}

	switch m.state {
	case ViewScanning:
		if m.scanView != nil {
			return m.scanView.View()
		}
	case ViewCategorySelection:
		if m.categoryView != nil {
			return m.categoryView.View()
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			return m.confirmView.View()
		}
	case ViewCleaning:
		if m.cleanupView != nil {
			return m.cleanupView.View()
		}
	case ViewSummary:
		if m.summaryView != nil {
			return m.summaryView.View()
		}
	case ViewHelp:
		return m.renderHelp()
	}

	return "Loading..."
}

func (m *AppModel) renderHelp() string {
	var b strings.Builder

	viewName, content := "General", helpGeneral
	switch m.previousState {
	case ViewScanning:
		viewName, content = "Scan", helpScan
	case ViewCategorySelection:
		viewName, content = "Category Selection", helpCategory
	case ViewConfirmation:
		viewName, content = "Confirmation", helpConfirm
	case ViewCleaning:
		viewName, content = "Cleanup", helpCleanup
	case ViewSummary:
		viewName, content = "Summary", helpSummary
	}

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Help - %s", viewName)))
	b.WriteString("\n\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press any key to close"))

	return b.String()
}

const helpScan = `Scanning shared storage, app caches and OBB folders.

Actions:
  ctrl+c  - Cancel scan and exit
  q       - Cancel scan and exit

The scan moves on to category selection when complete.`

const helpCategory = `Select which kinds of unnecessary files to delete.

Navigation:
  ↑/k     - Move up
  ↓/j     - Move down
  g / G   - Top / bottom

Selection:
  space   - Toggle category
  x       - Toggle and move down
  ctrl+a  - Select all
  ctrl+d  - Deselect all

Actions:
  enter   - Continue to confirmation
  q       - Quit`

const helpConfirm = `Review and confirm the deletion.

Navigation:
  ←/→/h/l - Switch between buttons

Actions:
  enter   - Activate button
  y       - Yes, delete
  e / esc - Back to categories
  n       - Cancel and quit

Deleted files cannot be recovered.`

const helpCleanup = `Deleting the selected files one at a time.

Actions:
  ctrl+c  - Stop after the current file

Files that could not be deleted stay in the list.`

const helpSummary = `The clean is finished.

Actions:
  enter   - Exit
  q       - Exit`

const helpGeneral = `Global Shortcuts:
  ?       - Show help for the current view
  q       - Quit (except while cleaning)
  ctrl+c  - Cancel and quit`

// ScanProgressMsg carries a scan progress update
type ScanProgressMsg struct {
	Progress *progress.ScanProgress
}

// ScanCompleteMsg is sent when the scan finishes. State is nil when the
// scanner could not be built.
type ScanCompleteMsg struct {
	State *scanner.State
	Err   error
}

// CategoriesSelectedMsg carries the file types chosen for deletion
type CategoriesSelectedMsg struct {
	Types []scanner.FileType
}

type ConfirmedMsg struct{}

type ReviewSelectionMsg struct{}

// CleanProgressMsg carries a clean progress update
type CleanProgressMsg struct {
	Progress *progress.CleanProgress
}

// CleanupCompleteMsg is sent when the cleaner returns
type CleanupCompleteMsg struct {
	Result *cleaner.CleanResult
}

// waitForUpdate turns the next progress update on ch into a message.
// It yields nil once ch is closed.
func waitForUpdate(ch <-chan interface{}) tea.Cmd {
	return func() tea.Msg {
		for update := range ch {
			switch p := update.(type) {
			case *progress.ScanProgress:
				return ScanProgressMsg{Progress: p}
			case *progress.CleanProgress:
				return CleanProgressMsg{Progress: p}
			}
		}
		return nil
	}
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}
