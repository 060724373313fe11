package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/cleaner-toolbox/internal/ui/models"
)

// RunInteractive starts the review-and-clean TUI and blocks until it exits
func RunInteractive(ctx context.Context, svc models.Service, dryRun bool) error {
	m := models.NewAppModel(ctx, svc, dryRun)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running interactive mode: %w", err)
	}
	if app, ok := final.(*models.AppModel); ok && app.Err() != nil {
		return app.Err()
	}

	return nil
}
