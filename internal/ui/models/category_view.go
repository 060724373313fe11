package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/components"
	"github.com/fenilsonani/cleaner-toolbox/internal/ui/styles"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// SafetyLevel represents how safe a category is to delete unreviewed
type SafetyLevel int

const (
	SafetyLow SafetyLevel = iota
	SafetyMedium
	SafetyHigh
)

func (s SafetyLevel) String() string {
	switch s {
	case SafetyHigh:
		return "SAFE"
	case SafetyMedium:
		return "CAUTION"
	default:
		return "RISKY"
	}
}

// CategoryItem represents a selectable file type
type CategoryItem struct {
	Type        scanner.FileType
	Count       int
	Size        int64
	Selected    bool
	SafetyLevel SafetyLevel
	Description string
}

// CategoryViewModel handles category selection
type CategoryViewModel struct {
	categories []CategoryItem
	scanErrs   []error
	cursor     int
	width      int
	height     int
}

// NewCategoryViewModel lists every file type present in result, in display
// order, with safe types preselected
func NewCategoryViewModel(result *scanner.ScanResult, width, height int) *CategoryViewModel {
	grouped := result.GroupByType()

	var categories []CategoryItem
	for _, t := range scanner.AllFileTypes() {
		g, ok := grouped[t]
		if !ok || g.TotalCount == 0 {
			continue
		}
		safety := typeSafety(t)
		categories = append(categories, CategoryItem{
			Type:        t,
			Count:       g.TotalCount,
			Size:        g.TotalSize,
			Selected:    safety == SafetyHigh,
			SafetyLevel: safety,
			Description: typeDescription(t),
		})
	}

	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	return &CategoryViewModel{
		categories: categories,
		scanErrs:   result.Errors,
		width:      width,
		height:     height,
	}
}

// Categories returns the listed items
func (m *CategoryViewModel) Categories() []CategoryItem {
	return m.categories
}

// Update handles messages
func (m *CategoryViewModel) Update(msg tea.Msg) (*CategoryViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.categories)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			if len(m.categories) > 0 {
				m.cursor = len(m.categories) - 1
			}
		case "space", " ":
			if m.cursor < len(m.categories) {
				m.categories[m.cursor].Selected = !m.categories[m.cursor].Selected
			}
		case "x":
			if m.cursor < len(m.categories) {
				m.categories[m.cursor].Selected = !m.categories[m.cursor].Selected
				if m.cursor < len(m.categories)-1 {
					m.cursor++
				}
			}
		case "ctrl+a":
			for i := range m.categories {
				m.categories[i].Selected = true
			}
		case "ctrl+d":
			for i := range m.categories {
				m.categories[i].Selected = false
			}
		case "enter":
			return m, m.proceed()
		}
	}

	return m, nil
}

// View renders the category selection view
func (m *CategoryViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Select Categories to Clean"))
	b.WriteString("\n\n")

	for _, err := range m.scanErrs {
		b.WriteString(styles.WarningStyle.Render("⚠ " + err.Error()))
		b.WriteString("\n")
	}
	if len(m.scanErrs) > 0 {
		b.WriteString("\n")
	}

	if len(m.categories) == 0 {
		b.WriteString(styles.SuccessStyle.Render("✓ No unnecessary files found"))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("Press q to quit"))
		return b.String()
	}

	var selectedCats, selectedFiles int
	var selectedSize int64

	for i, cat := range m.categories {
		cursor := "  "
		if i == m.cursor {
			cursor = styles.SelectedStyle.Render("→ ")
		}

		checkbox := styles.UncheckedBox()
		if cat.Selected {
			checkbox = styles.CheckedBox()
			selectedCats++
			selectedFiles += cat.Count
			selectedSize += cat.Size
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.TypeColor(cat.Type)).Bold(true)
		sizeStyle := lipgloss.NewStyle().Foreground(styles.SizeColor(cat.Size)).Bold(true)

		b.WriteString(fmt.Sprintf("%s%s %s %s (%s files, %s)\n",
			cursor,
			checkbox,
			nameStyle.Render(cat.Type.Label()),
			safetyStyle(cat.SafetyLevel).Render(cat.SafetyLevel.String()),
			styles.DimStyle.Render(fmt.Sprintf("%d", cat.Count)),
			sizeStyle.Render(utils.FormatBytes(cat.Size)),
		))

		if i == m.cursor && m.width >= 100 {
			desc := lipgloss.NewStyle().Foreground(styles.TextDim).Italic(true).MarginLeft(6)
			b.WriteString(desc.Render("↳ " + cat.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Selected: %d files, %s",
		selectedFiles, utils.FormatBytes(selectedSize))))
	b.WriteString("\n\n")

	bar := components.NewStatusBar("Category Selection")
	bar.SetSelection(selectedCats, len(m.categories), selectedSize)
	bar.SetShortcuts(
		components.Shortcut{Key: "↑/↓", Desc: "navigate"},
		components.Shortcut{Key: "space", Desc: "toggle"},
		components.Shortcut{Key: "enter", Desc: "continue"},
		components.Shortcut{Key: "?", Desc: "help"},
		components.Shortcut{Key: "q", Desc: "quit"},
	)
	b.WriteString(bar.Render(m.width))

	return b.String()
}

// proceed emits the selected types; nothing happens with an empty selection
func (m *CategoryViewModel) proceed() tea.Cmd {
	var selected []scanner.FileType
	for _, cat := range m.categories {
		if cat.Selected {
			selected = append(selected, cat.Type)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	return func() tea.Msg {
		return CategoriesSelectedMsg{Types: selected}
	}
}

func typeSafety(t scanner.FileType) SafetyLevel {
	switch t {
	case scanner.Temp, scanner.Cache, scanner.Log:
		return SafetyHigh
	case scanner.Junk, scanner.ObsoleteAPK:
		return SafetyMedium
	default:
		return SafetyLow
	}
}

func safetyStyle(s SafetyLevel) lipgloss.Style {
	switch s {
	case SafetyHigh:
		return styles.SuccessStyle
	case SafetyMedium:
		return styles.WarningStyle
	default:
		return styles.ErrorStyle
	}
}

func typeDescription(t scanner.FileType) string {
	switch t {
	case scanner.Junk:
		return "Backups and unfinished downloads (.bak, .part, .crdownload)"
	case scanner.ObsoleteAPK:
		return "Installer packages left in shared storage"
	case scanner.Temp:
		return "Temporary files created by apps"
	case scanner.Log:
		return "Log files written by apps"
	case scanner.Cache:
		return "Thumbnails and app caches that are rebuilt on demand"
	default:
		return ""
	}
}
