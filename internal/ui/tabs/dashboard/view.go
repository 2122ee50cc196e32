package dashboard

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/services/projection"
	"github.com/j-veylop/claude-meter-tui/internal/ui/components"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// View renders the dashboard.
func (m *Model) View() string {
	if !m.state.Loaded() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	st := m.state.Usage()
	now := m.now()

	sections := []string{m.renderTitle()}

	if st.LastError != nil {
		sections = append(sections, m.renderErrorCard(st.LastError))
	}

	switch {
	case st.Rolling != nil:
		sections = append(sections, m.renderRollingCard(st, now))
	case st.Bucketed != nil:
		sections = append(sections, m.renderBucketedCards(st.Bucketed)...)
	case st.LastError == nil:
		sections = append(sections, m.renderEmpty())
	}

	if st.Credential != nil {
		sections = append(sections, m.renderCredentialCard(st.Credential, now))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Claude Usage")
	subtitle := styles.HelpStyle.Render("Rolling usage windows and token totals")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderEmpty() string {
	rows := []string{
		styles.CardTitleStyle.Render("Usage"),
		"",
		styles.HelpStyle.Render("No usage data yet. Press r to refresh."),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderErrorCard(err *models.UsageError) string {
	rows := []string{
		styles.ErrorTextStyle.Render("✗ " + err.Kind.StatusLabel()),
		"",
		err.Message,
	}

	switch err.Kind {
	case models.ErrTokenExpired:
		rows = append(rows, "", styles.HelpStyle.Render("Token "+components.ExpiredTokenHint+"."))
	case models.ErrNoToken:
		rows = append(rows, "", styles.InfoTextStyle.Render("  ╰─▶ Press t to enter a token"))
	case models.ErrRateLimited:
		if err.RetryAfter != nil {
			rows = append(rows, "", styles.WarningTextStyle.Render(
				"Retry after "+err.RetryAfter.Local().Format("15:04:05")))
		}
	}
	if err.HTTPStatus != 0 {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("HTTP %d", err.HTTPStatus)))
	}

	return styles.AlertCardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderRollingCard(st services.State, now time.Time) string {
	width := m.cardWidth()
	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Rolling Windows")), ""}

	for i, w := range st.Rolling.Windows() {
		if w.Reading == nil {
			continue
		}
		if i >= 2 && !m.ShowBreakdown() {
			continue
		}
		rows = append(rows, m.renderWindow(w, st.TrendFor(w.Key), st.ProjectionFor(w.Key), now, width-4)...)
		rows = append(rows, "")
	}

	if !m.ShowBreakdown() && (st.Rolling.SevenDayOpus != nil || st.Rolling.SevenDaySonnet != nil) {
		rows = append(rows, styles.HelpStyle.Render("Press m for the per-model breakdown"))
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderWindow(w models.NamedWindow, trend models.Trend, proj models.Projection, now time.Time, width int) []string {
	fraction := m.displayFraction(w.Key, w.Reading.Utilization)
	lines := []string{m.usageBar.View(fraction, w.Label, width)}

	detail := fmt.Sprintf("Resets in %s (%s)",
		components.TimeRemaining(w.Reading.ResetsAt, now),
		components.ResetLabel(w.Reading.ResetsAt))
	if trend.HasData() {
		detail += "  " + trendStyle(trend.Direction).Render(trend.String())
	}
	if w.Reading.Percent() >= styles.OverLimitPercent {
		detail += "  " + styles.UsageOverLimitStyle.Render("over limit")
	}
	lines = append(lines, styles.HelpStyle.Render(detail))

	if proj.Known() {
		badge := styles.GetProjectionStyle(proj.Status).Render(string(proj.Status))
		lines = append(lines, fmt.Sprintf("%s %s", badge, styles.HelpStyle.Render(projection.Summary(proj))))
	}
	return lines
}

func trendStyle(d models.TrendDirection) lipgloss.Style {
	switch d {
	case models.TrendUp:
		return styles.TrendUpStyle
	case models.TrendDown:
		return styles.TrendDownStyle
	default:
		return styles.TrendFlatStyle
	}
}

func (m *Model) renderBucketedCards(s *models.BucketedTotalsSnapshot) []string {
	width := m.cardWidth()

	today := []string{styles.CardTitleStyle.Render("Today"), ""}
	if s.Today == nil {
		today = append(today, styles.HelpStyle.Render("No usage reported for today yet"))
	} else {
		today = append(today, bucketRows(*s.Today)...)
	}

	week := append([]string{styles.CardTitleStyle.Render("Past 7 Days"), ""}, bucketRows(s.Week)...)

	return []string{
		styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, today...)),
		styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, week...)),
	}
}

func bucketRows(b models.TokenBucket) []string {
	return []string{
		row("Total", models.FormatTokens(b.Total())),
		row("In", humanize.Comma(b.InputTokens)),
		row("Out", humanize.Comma(b.OutputTokens)),
	}
}

func (m *Model) renderCredentialCard(c *services.CredentialInfo, now time.Time) string {
	rows := []string{
		styles.CardTitleStyle.Render("Credential"),
		"",
		row("Source", string(c.Source)),
		row("Kind", string(c.Kind)),
		row("Token", c.Masked),
	}
	if c.ExpiresAt != nil {
		expiry := humanize.RelTime(*c.ExpiresAt, now, "ago", "from now")
		if !now.Before(*c.ExpiresAt) {
			expiry = styles.ErrorTextStyle.Render("expired " + expiry)
		}
		rows = append(rows, row("Expires", expiry))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	labelStyle := lipgloss.NewStyle().Width(12).Foreground(styles.TextMuted)
	return labelStyle.Render(label+":") + " " + lipgloss.NewStyle().Foreground(styles.TextPrimary).Render(value)
}
