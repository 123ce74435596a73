package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/daelim/internal/ui"
	"github.com/muurk/daelim/internal/version"
)

// AppName is shown in the dashboard header
const AppName = "DAELIM HOME"

// Fallback size before the first WindowSizeMsg
const (
	defaultWidth  = 80
	defaultHeight = 24
)

var (
	BorderColor = ui.PrimaryColor

	TitleStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			PaddingLeft(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ui.ErrorColor).
			Bold(true).
			PaddingLeft(1)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ui.WarningColor).
			Bold(true).
			PaddingLeft(1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)
)

func buildHeader() string {
	left := lipgloss.NewStyle().
		Foreground(ui.TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)
	return left
}

// renderContainer wraps content in the full-screen frame: header, content
// and a footer holding the help line.
func renderContainer(content, footer string, width, height int) string {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(buildHeader()),
		lipgloss.NewStyle().Width(width-4).Render(content),
		footerStyle.Render(SubtleStyle.Render(footer)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}
