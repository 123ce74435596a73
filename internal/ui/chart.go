package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/daelim/internal/home"
)

// YearlyChart renders a year of monthly usage as horizontal bars scaled
// to the busiest month, followed by the household's ranking.
func YearlyChart(y *home.YearlyEnergy, width int) string {
	if y == nil {
		return NoteStyle.Render("  no data")
	}

	barWidth := width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)

	var peak float64
	for _, v := range y.Months {
		if v > peak {
			peak = v
		}
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("  %s %s", y.Type, y.Year)))
	b.WriteString("\n")
	for i, v := range y.Months {
		percent := 0.0
		if peak > 0 {
			percent = v / peak
		}
		fmt.Fprintf(&b, "  %2d  %s  %s\n", i+1, bar.ViewAs(percent), formatNumber(v))
	}

	if y.Households > 0 {
		rank := lipgloss.NewStyle().Foreground(MutedColor).Render(
			fmt.Sprintf("  usage %s, complex average %s, rank %d of %d households",
				formatNumber(y.Usage), formatNumber(y.Average), y.Position, y.Households))
		b.WriteString(rank)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
