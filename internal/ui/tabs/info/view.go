package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
	"github.com/j-veylop/claude-meter-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderSettingsCard(),
		m.renderAboutCard(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Files"), ""}

	if m.config != nil {
		rows = append(rows,
			renderRow("Settings", m.config.SettingsPath),
			renderRow("Database", m.config.DatabasePath),
			renderRow("Log File", m.config.LogPath),
			renderRow("Log Level", m.config.LogLevel),
			renderRow("API", m.config.APIBaseURL),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderSettingsCard() string {
	rows := []string{styles.CardTitleStyle.Render("Settings"), ""}

	if m.config != nil {
		s := m.config.Settings
		token := styles.HelpStyle.Render("not set (auto-discovery)")
		if s.ManualToken != "" {
			token = models.Credential{Token: s.ManualToken}.Masked()
		}
		rows = append(rows,
			renderRow("Refresh", m.config.RefreshInterval().String()),
			renderRow("Notify At", fmt.Sprintf("%.0f%%", s.NotifyAtThreshold*100)),
			renderRow("Status Bar", fmt.Sprintf("%s (priority %d)", s.StatusBarPosition, s.StatusBarPriority)),
			renderRow("Breakdown", fmt.Sprintf("%t", s.ShowModelBreakdown)),
			renderRow("Manual Token", token),
		)
	}

	if cred := m.state.Usage().Credential; cred != nil {
		rows = append(rows, renderRow("In Use", fmt.Sprintf("%s (%s)", cred.Kind, cred.Source)))
	}

	rows = append(rows, "", styles.HelpStyle.Render("Press t to set a token, x to clear it. Edit the settings file and press s to apply it."))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(14).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About Claude Meter"),
		"",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
