// Package components provides reusable UI components.
package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// TextBarWidth is the cell count of the plain text bar.
const TextBarWidth = 10

// UsageBar renders a utilization progress bar with label and percentage.
type UsageBar struct {
	progress progress.Model
}

// NewUsageBar creates a usage bar that shades from orange to red as it fills.
func NewUsageBar() UsageBar {
	return UsageBar{
		progress: progress.New(
			progress.WithScaledGradient("#E87B39", "#ff4d4d"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// View renders "label [bar] 42%" in the given width. Fractions above 1
// render a full bar and the real percentage.
func (u UsageBar) View(fraction float64, label string, width int) string {
	barWidth := width - 26 // label and percentage
	if barWidth < 10 {
		barWidth = 10
	}
	u.progress.Width = barWidth

	bar := u.progress.ViewAs(math.Min(math.Max(fraction, 0), 1))

	pct := roundPercent(fraction)
	percentStr := styles.GetUsageStyle(pct).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%d%%", pct))

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		styles.ProgressLabelStyle.Render(label),
		bar,
		" ",
		percentStr,
	)
}

// TextBar renders a fixed ten cell bar of █ and ░. The fill is clamped at 100%.
func TextBar(fraction float64) string {
	filled := int(math.Round(math.Min(math.Max(fraction, 0), 1) * TextBarWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", TextBarWidth-filled)
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(fraction float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * fraction)
	filled = min(max(filled, 0), width)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor("#E87B39", "#ff4d4d", t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}

func roundPercent(fraction float64) int {
	return int(math.Floor(fraction*100 + 0.5))
}
