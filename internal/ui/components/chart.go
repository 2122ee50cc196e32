package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-meter-tui/internal/history"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// NoDataMessage is shown in place of a chart without readings.
const NoDataMessage = "No data available"

// Chart dimensions are clamped to these minimums.
const (
	minChartWidth  = 20
	minChartHeight = 3
)

// RenderLineChart creates a single-series percentage chart. NaN values are
// drawn as gaps.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if !history.HasSeriesData(data) {
		return styles.HelpStyle.Render(NoDataMessage)
	}

	return asciigraph.Plot(data, chartOptions(width, height, caption)...)
}

// RenderDualLineChart plots the five-hour and seven-day series together.
// The shorter series is padded with gaps on the left so both end at the
// most recent reading.
func RenderDualLineChart(fiveHour, sevenDay []float64, width, height int, caption string) string {
	if !history.HasSeriesData(fiveHour) && !history.HasSeriesData(sevenDay) {
		return styles.HelpStyle.Render(NoDataMessage)
	}

	n := max(len(fiveHour), len(sevenDay))
	opts := append(chartOptions(width, height, caption),
		asciigraph.SeriesColors(asciigraph.Orange, asciigraph.Blue),
	)
	return asciigraph.PlotMany([][]float64{padLeft(fiveHour, n), padLeft(sevenDay, n)}, opts...)
}

func chartOptions(width, height int, caption string) []asciigraph.Option {
	return []asciigraph.Option{
		asciigraph.Height(max(height, minChartHeight)),
		asciigraph.Width(max(width, minChartWidth)),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Precision(0),
		asciigraph.Caption(caption),
	}
}

// RenderSparkline creates a compact inline sparkline scaled to 0-100.
// Gaps render as spaces.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	sparkChars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// Keep the newest values when the series is wider than the space
	if len(values) > width {
		values = values[len(values)-width:]
	}

	var b strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			b.WriteRune(' ')
			continue
		}
		idx := int(math.Min(math.Max(v, 0), 100) / 100 * float64(len(sparkChars)-1))
		b.WriteString(styles.GetUsageStyle(int(v)).Render(string(sparkChars[idx])))
	}
	return b.String()
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// SeriesLegend is the legend for RenderDualLineChart.
func SeriesLegend() []LegendItem {
	return []LegendItem{
		{Label: "5-hour", Color: styles.FiveHourColor},
		{Label: "7-day", Color: styles.SevenDayColor},
	}
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := lo.Map(items, func(item LegendItem, _ int) string {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		return fmt.Sprintf("%s %s", colorBox, item.Label)
	})
	return strings.Join(parts, "  ")
}

func padLeft(series []float64, n int) []float64 {
	if len(series) >= n {
		return series
	}
	out := make([]float64, n)
	gap := n - len(series)
	for i := range gap {
		out[i] = math.NaN()
	}
	copy(out[gap:], series)
	return out
}
