package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// StatusLevel is the severity the indicator is drawn with.
type StatusLevel int

const (
	StatusNormal StatusLevel = iota
	StatusHigh
	StatusOverLimit
	StatusError
	StatusLoading
)

// ExpiredTokenHint follows the auth expired label.
const ExpiredTokenHint = "will refresh once Claude Code renews your credentials"

// TimeRemaining returns a compact time until resetsAt: "45m", "3h", "5d".
// Past or unparseable times yield "now" and "?" respectively.
func TimeRemaining(resetsAt string, now time.Time) string {
	reset, err := time.Parse(time.RFC3339Nano, resetsAt)
	if err != nil {
		return "?"
	}
	d := reset.Sub(now)
	switch {
	case d <= 0:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

// ResetLabel formats resetsAt in local time, or "Unknown".
func ResetLabel(resetsAt string) string {
	reset, err := time.Parse(time.RFC3339Nano, resetsAt)
	if err != nil {
		return "Unknown"
	}
	return reset.Local().Format("Mon Jan 2 15:04")
}

// CompactArrow returns the trend arrow for the one-line indicator. Flat
// trends and trends without data render nothing.
func CompactArrow(t models.Trend) string {
	if !t.HasData() || t.Direction == models.TrendFlat {
		return ""
	}
	return t.Direction.Arrow()
}

// UsageLevel classifies the highest of the two main windows.
func UsageLevel(s *models.RollingWindowSnapshot) StatusLevel {
	peak := 0
	for _, r := range []*models.RollingWindowReading{s.FiveHour, s.SevenDay} {
		if r != nil {
			peak = max(peak, r.Percent())
		}
	}
	switch {
	case peak >= styles.OverLimitPercent:
		return StatusOverLimit
	case peak >= styles.HighUsagePercent:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// StatusText builds the plain indicator text and its level.
func StatusText(st services.State, now time.Time) (string, StatusLevel) {
	if st.LastError != nil {
		text := "✗ Claude: " + st.LastError.Kind.StatusLabel()
		if st.LastError.Kind == models.ErrTokenExpired {
			text += " (" + ExpiredTokenHint + ")"
		}
		return text, StatusError
	}

	switch {
	case st.Rolling != nil:
		return rollingText(st, now)
	case st.Bucketed != nil:
		return "● " + BucketedText(st.Bucketed), StatusNormal
	case st.Refreshing:
		return "Claude…", StatusLoading
	default:
		return "Claude: waiting for data", StatusLoading
	}
}

func rollingText(st services.State, now time.Time) (string, StatusLevel) {
	s := st.Rolling
	level := UsageLevel(s)

	icon := "●"
	switch level {
	case StatusOverLimit:
		icon = "⚠"
	case StatusHigh:
		icon = "▲"
	}

	var parts []string
	if s.FiveHour != nil {
		parts = append(parts, fmt.Sprintf("Daily:%d%%%s·%s",
			s.FiveHour.Percent(), CompactArrow(st.FiveHourTrend), TimeRemaining(s.FiveHour.ResetsAt, now)))
	}
	if s.SevenDay != nil {
		parts = append(parts, fmt.Sprintf("Weekly:%d%%%s·%s",
			s.SevenDay.Percent(), CompactArrow(st.SevenDayTrend), TimeRemaining(s.SevenDay.ResetsAt, now)))
	}
	return icon + " " + strings.Join(parts, "  "), level
}

// BucketedText renders "Today:1.2M  Week:8.4M". A missing today bucket is "—".
func BucketedText(s *models.BucketedTotalsSnapshot) string {
	today := "—"
	if s.Today != nil {
		today = models.FormatTokens(s.Today.Total())
	}
	return fmt.Sprintf("Today:%s  Week:%s", today, models.FormatTokens(s.Week.Total()))
}

// RenderStatusLine renders the indicator in a single line of the given
// width, aligned to the configured side and truncated to fit.
func RenderStatusLine(st services.State, now time.Time, width int) string {
	text, level := StatusText(st, now)
	if !st.LastSuccess.IsZero() && level != StatusLoading {
		text += "  " + styles.HelpStyle.Render("updated "+humanize.RelTime(st.LastSuccess, now, "ago", "from now"))
	}

	style := levelStyle(level)
	inner := max(width-2, 1)
	line := ansi.Truncate(style.Render(text), inner, "…")

	align := lipgloss.Right
	if st.Display.Position == models.StatusLeft {
		align = lipgloss.Left
	}
	return styles.StatusBarStyle.Width(width).Align(align).Render(line)
}

func levelStyle(level StatusLevel) lipgloss.Style {
	switch level {
	case StatusOverLimit:
		return styles.UsageOverLimitStyle
	case StatusHigh:
		return styles.UsageHighStyle
	case StatusError:
		return styles.ErrorTextStyle
	case StatusLoading:
		return styles.HelpStyle
	default:
		return styles.UsageNormalStyle
	}
}
