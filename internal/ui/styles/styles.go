// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Color definitions for the Claude Meter theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("#E87B39") // Claude orange
	Secondary = lipgloss.Color("63")      // Purple
	Subtle    = lipgloss.Color("240")     // Gray

	// Series colors for charts
	FiveHourColor = lipgloss.Color("#E87B39")
	SevenDayColor = lipgloss.Color("39")

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Overlay background
	BgDark = lipgloss.Color("235")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// Usage levels in whole percent.
const (
	HighUsagePercent = 80
	OverLimitPercent = 100
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// AlertCardStyle highlights a card that needs attention.
var AlertCardStyle = CardStyle.
	BorderForeground(Error)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// ProgressLabelStyle styles progress bar labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(18)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// ModalContentStyle styles modal content.
var ModalContentStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 2).
	Background(BgDark)

// StatusBarStyle is the container of the one-line usage indicator.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Padding(0, 1)

// UsageNormalStyle for utilization below the high-usage mark.
var UsageNormalStyle = lipgloss.NewStyle().
	Foreground(Primary)

// UsageHighStyle for utilization at or above 80%.
var UsageHighStyle = lipgloss.NewStyle().
	Foreground(Warning).
	Bold(true)

// UsageOverLimitStyle for utilization at or above 100%.
var UsageOverLimitStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("229")).
	Background(Error).
	Bold(true)

// Message text, matching the toast kinds.
var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
)

// TrendUpStyle and TrendDownStyle color trend arrows.
var (
	TrendUpStyle   = lipgloss.NewStyle().Foreground(Warning)
	TrendDownStyle = lipgloss.NewStyle().Foreground(Success)
	TrendFlatStyle = lipgloss.NewStyle().Foreground(TextMuted)
)

// GetUsageStyle returns the style for a utilization percentage.
func GetUsageStyle(percent int) lipgloss.Style {
	switch {
	case percent >= OverLimitPercent:
		return UsageOverLimitStyle
	case percent >= HighUsagePercent:
		return UsageHighStyle
	default:
		return UsageNormalStyle
	}
}

// GetProjectionStyle colors a depletion projection badge.
func GetProjectionStyle(status models.ProjectionStatus) lipgloss.Style {
	switch status {
	case models.ProjectionCritical:
		return ErrorTextStyle.Bold(true)
	case models.ProjectionWarning:
		return WarningTextStyle.Bold(true)
	default:
		return SuccessTextStyle
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
