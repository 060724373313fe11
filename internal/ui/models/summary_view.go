package models

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// SummaryViewModel shows the result of a clean
type SummaryViewModel struct {
	result *cleaner.CleanResult
}

// NewSummaryViewModel creates a new summary view model
func NewSummaryViewModel(result *cleaner.CleanResult) *SummaryViewModel {
	return &SummaryViewModel{result: result}
}

// Update handles messages
func (m *SummaryViewModel) Update(msg tea.Msg) (*SummaryViewModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		return m, tea.Quit
	}
	return m, nil
}

// View renders the summary view
func (m *SummaryViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Cleanup Summary"))
	b.WriteString("\n\n")

	if m.result != nil {
		verb := "deleted"
		if m.result.DryRun {
			verb = "would delete"
		}
		b.WriteString(styles.SuccessStyle.Render(fmt.Sprintf("✓ %s %d files",
			strings.ToUpper(verb[:1])+verb[1:], len(m.result.DeletedFiles))))
		b.WriteString("\n")
		b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("Space freed: %s", utils.FormatBytes(m.result.DeletedSize))))
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("Took %s", m.result.FinishedAt.Sub(m.result.StartedAt).Round(time.Millisecond))))
		b.WriteString("\n\n")

		if m.result.Failed > 0 {
			b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("✗ %d files could not be deleted", m.result.Failed)))
			b.WriteString("\n")
			b.WriteString(cleaner.FormatErrorSummary(m.result.Errors))
			b.WriteString("\n")
		}

		if m.result.ManifestPath != "" {
			b.WriteString(styles.DimStyle.Render("Manifest: "))
			b.WriteString(styles.FilePathStyle.Render(m.result.ManifestPath))
			b.WriteString("\n")
		}

		if m.result.DryRun {
			b.WriteString("\n")
			b.WriteString(styles.InfoStyle.Render("Note: This was a dry run. No files were actually deleted."))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("Press q or enter to exit"))

	return b.String()
}
