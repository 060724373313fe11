package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// RiskLevel represents the risk level of a deletion
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

const (
	buttonYes = iota
	buttonReview
	buttonCancel
)

// ConfirmViewModel handles the confirmation screen
type ConfirmViewModel struct {
	files     *scanner.ScanResult
	dryRun    bool
	cursor    int
	riskLevel RiskLevel
	access    *cleaner.AccessReport // dry runs only
	width     int
}

// NewConfirmViewModel creates a new confirm view model
func NewConfirmViewModel(files *scanner.ScanResult, dryRun bool, width int) *ConfirmViewModel {
	risk := calculateRiskLevel(files)
	cursor := buttonYes
	if risk == RiskHigh {
		cursor = buttonCancel
	}
	if width == 0 {
		width = 80
	}

	m := &ConfirmViewModel{
		files:     files,
		dryRun:    dryRun,
		cursor:    cursor,
		riskLevel: risk,
		width:     width,
	}
	if dryRun {
		paths := make([]string, len(files.Files))
		for i, f := range files.Files {
			paths[i] = f.Path
		}
		m.access = cleaner.AnalyzeAccess(paths, nil)
	}
	return m
}

// calculateRiskLevel grades a deletion by its size and the types involved
func calculateRiskLevel(files *scanner.ScanResult) RiskLevel {
	grouped := files.GroupByType()
	_, apks := grouped[scanner.ObsoleteAPK]
	_, junk := grouped[scanner.Junk]

	if files.TotalCount > 500 || files.TotalSize >= 1<<30 {
		return RiskHigh
	}
	if files.TotalCount >= 50 || apks || junk {
		return RiskMedium
	}
	return RiskLow
}

// Update handles messages
func (m *ConfirmViewModel) Update(msg tea.Msg) (*ConfirmViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			if m.cursor > buttonYes {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < buttonCancel {
				m.cursor++
			}
		case "tab":
			m.cursor = (m.cursor + 1) % 3
		case "enter":
			switch m.cursor {
			case buttonYes:
				return m, func() tea.Msg { return ConfirmedMsg{} }
			case buttonReview:
				return m, func() tea.Msg { return ReviewSelectionMsg{} }
			case buttonCancel:
				return m, tea.Quit
			}
		case "y":
			return m, func() tea.Msg { return ConfirmedMsg{} }
		case "e":
			return m, func() tea.Msg { return ReviewSelectionMsg{} }
		case "n":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the confirmation view
func (m *ConfirmViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Confirm Deletion"))
	b.WriteString("\n\n")

	verb := "delete"
	if m.dryRun {
		verb = "simulate deleting"
	}
	b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("You are about to %s %d files (%s)",
		verb, m.files.TotalCount, utils.FormatBytes(m.files.TotalSize))))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("Breakdown:"))
	b.WriteString("\n")
	grouped := m.files.GroupByType()
	for _, t := range scanner.AllFileTypes() {
		if g, ok := grouped[t]; ok {
			b.WriteString(fmt.Sprintf("  %-18s %3d files (%s)\n",
				styles.CategoryStyle.Render(t.Label()+":"),
				g.TotalCount,
				styles.FileSizeStyle.Render(utils.FormatBytes(g.TotalSize))))
		}
	}
	b.WriteString("\n")

	switch m.riskLevel {
	case RiskHigh:
		b.WriteString("Risk Level: " + styles.ErrorStyle.Render("HIGH (many files or over 1 GiB)"))
	case RiskMedium:
		b.WriteString("Risk Level: " + styles.WarningStyle.Render("MEDIUM (includes APKs or backups)"))
	default:
		b.WriteString("Risk Level: " + styles.SuccessStyle.Render("LOW (temporary and cache files only)"))
	}
	b.WriteString("\n\n")

	if m.dryRun {
		b.WriteString(styles.InfoStyle.Render("Dry run: nothing will be removed."))
		if m.access != nil && len(m.access.Blocked) > 0 {
			b.WriteString("\n")
			b.WriteString(styles.WarningStyle.Render(fmt.Sprintf("%d files (%s) are blocked by permissions and would fail.",
				len(m.access.Blocked), utils.FormatBytes(m.access.BlockedSize))))
		}
	} else {
		b.WriteString(styles.WarningStyle.Render("⚠ This action cannot be undone!"))
	}
	b.WriteString("\n\n")

	buttons := []string{"[ Yes, delete ]", "[ Review ]", "[ Cancel ]"}
	buttons[m.cursor] = styles.HighlightStyle.Render(buttons[m.cursor])
	b.WriteString(strings.Join(buttons, "  "))
	b.WriteString("\n\n")

	helpText := "y:confirm  e:edit  n:cancel  ←/→:navigate"
	if m.width < 60 {
		helpText = "y:yes  e:edit  n:no  ←/→"
	}
	b.WriteString(styles.HelpStyle.Render(helpText))

	return b.String()
}
