package history

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-meter-tui/internal/history"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/ui/components"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// recentDays is how many rows the daily table lists.
const recentDays = 7

// View renders the history tab.
func (m *Model) View() string {
	if !m.state.Loaded() {
		return m.renderMessage(styles.HelpStyle.Render("Loading history data..."))
	}

	st := m.state.Usage()
	log := history.New(st.History, st.Daily)

	var sections []string
	switch m.timeRange {
	case RangeDaily:
		if !history.HasSeriesData(log.DailySeries(1)) && !history.HasSeriesData(log.DailySeries(2)) {
			return m.renderEmpty(st)
		}
		sections = append(sections, m.renderHeader(), m.renderDailyChart(log), m.renderDailyTable(log))
	default:
		if !history.HasSeriesData(log.HistorySeries(1)) && !history.HasSeriesData(log.HistorySeries(2)) {
			return m.renderEmpty(st)
		}
		sections = append(sections, m.renderHeader(), m.renderRecentChart(log))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderMessage(content string) string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty(st services.State) string {
	lines := []string{
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No historical data available yet."),
	}
	if st.Bucketed != nil {
		lines = append(lines, styles.HelpStyle.Render("History is recorded for subscription usage windows only."))
	} else {
		lines = append(lines, styles.HelpStyle.Render("Data will appear as usage readings are recorded."))
	}
	return m.renderMessage(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderHeader() string {
	tabs := lo.Map([]Range{RangeRecent, RangeDaily}, func(r Range, _ int) string {
		if r == m.timeRange {
			return styles.HelpKeyStyle.Render("[" + r.String() + "]")
		}
		return styles.HelpStyle.Render(" " + r.String() + " ")
	})

	title := styles.TitleStyle.Render("Usage History")
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, append([]string{title, "  "}, tabs...)...),
		"",
	)
}

func (m *Model) chartSize() (int, int) {
	// Leave room for the y-axis labels and the card border.
	return max(m.width-20, 20), max(m.height/3, 6)
}

func (m *Model) renderRecentChart(log *history.Log) string {
	fiveHour := log.HistorySeries(1)
	sevenDay := log.HistorySeries(2)
	width, height := m.chartSize()

	rows := []string{
		styles.CardTitleStyle.Render("Per Refresh"),
		styles.HelpStyle.Render(fmt.Sprintf("%d readings, oldest %s", len(log.History), m.oldestReading(log))),
		"",
		components.RenderDualLineChart(fiveHour, sevenDay, width, height, "utilization %"),
		"",
		components.RenderLegend(components.SeriesLegend()),
		"",
		styles.SubTitleStyle.Render("5-hour ") + components.RenderSparkline(fiveHour, min(width, 40)),
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) oldestReading(log *history.Log) string {
	if len(log.History) == 0 {
		return "never"
	}
	oldest := time.UnixMilli(log.History[0].TimestampMs)
	return humanize.RelTime(oldest, m.now(), "ago", "from now")
}

func (m *Model) renderDailyChart(log *history.Log) string {
	days := log.LastDays(history.MaxDailyEntries)
	width, height := m.chartSize()

	caption := fmt.Sprintf("%d days, 5-hour peak and 7-day close", len(days))
	rows := []string{
		styles.CardTitleStyle.Render("Daily"),
		"",
		components.RenderDualLineChart(log.DailySeries(1), log.DailySeries(2), width, height, caption),
		"",
		components.RenderLegend(components.SeriesLegend()),
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDailyTable(log *history.Log) string {
	days := log.LastDays(recentDays)

	header := lipgloss.NewStyle().Bold(true).Foreground(styles.TextSecondary).
		Render(fmt.Sprintf("%-12s %-18s %-18s", "Date", "5-hour peak", "7-day close"))

	rows := []string{styles.CardTitleStyle.Render("Last 7 Days"), "", header}
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		rows = append(rows, fmt.Sprintf("%-12s %-18s %-18s", d.Date, percentCell(d.Slot1), percentCell(d.Slot2)))
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func percentCell(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "—"
	}
	return fmt.Sprintf("%s %3.0f%%", components.TextBar(*v/100), *v)
}
