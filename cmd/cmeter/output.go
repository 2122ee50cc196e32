package main

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/j-veylop/claude-meter-tui/internal/history"
	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/services/projection"
	"github.com/j-veylop/claude-meter-tui/internal/ui/components"
)

// formatStatus is the one-line indicator plus when it was last updated.
func formatStatus(st services.State, now time.Time) string {
	text, _ := components.StatusText(st, now)
	if !st.LastSuccess.IsZero() {
		text += "  (updated " + humanize.RelTime(st.LastSuccess, now, "ago", "from now") + ")"
	}
	return text
}

// formatDetails lists every window, or the token totals, one per line.
func formatDetails(st services.State, now time.Time) string {
	var b strings.Builder

	if st.LastError != nil {
		fmt.Fprintf(&b, "✗ %s: %s\n", st.LastError.Kind.StatusLabel(), st.LastError.Message)
		if st.LastError.Kind == models.ErrTokenExpired {
			fmt.Fprintf(&b, "  Token %s.\n", components.ExpiredTokenHint)
		}
	}

	switch {
	case st.Rolling != nil:
		for _, w := range st.Rolling.Windows() {
			if w.Reading == nil {
				continue
			}
			line := fmt.Sprintf("%-16s %s %4d%%  resets in %s (%s)",
				w.Label,
				components.TextBar(w.Reading.Utilization),
				w.Reading.Percent(),
				components.TimeRemaining(w.Reading.ResetsAt, now),
				components.ResetLabel(w.Reading.ResetsAt))
			if trend := st.TrendFor(w.Key); trend.HasData() {
				line += "  " + trend.String()
			}
			b.WriteString(line + "\n")
			if proj := st.ProjectionFor(w.Key); proj.Known() {
				fmt.Fprintf(&b, "%-16s %s: %s\n", "", proj.Status, projection.Summary(proj))
			}
		}
	case st.Bucketed != nil:
		if st.Bucketed.Today != nil {
			b.WriteString(bucketLine("Today", *st.Bucketed.Today))
		} else {
			fmt.Fprintf(&b, "%-16s —\n", "Today")
		}
		b.WriteString(bucketLine("Past 7 Days", st.Bucketed.Week))
	case st.LastError == nil:
		b.WriteString("No usage data yet\n")
	}

	if c := st.Credential; c != nil {
		fmt.Fprintf(&b, "\nToken: %s (%s, %s)\n", c.Masked, c.Kind, c.Source)
	}
	return b.String()
}

func bucketLine(label string, b models.TokenBucket) string {
	return fmt.Sprintf("%-16s %6s  (in %s / out %s)\n",
		label, models.FormatTokens(b.Total()), humanize.Comma(b.InputTokens), humanize.Comma(b.OutputTokens))
}

// formatHistory renders the most recent days as a table, newest first.
func formatHistory(st services.State, days int, now time.Time) string {
	log := history.New(st.History, st.Daily)
	recent := log.LastDays(days)
	if len(recent) == 0 {
		return "No daily history recorded yet\n"
	}

	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignRight},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	table.Header([]string{"Date", "5-hour peak", "", "7-day close"})
	for i := len(recent) - 1; i >= 0; i-- {
		d := recent[i]
		_ = table.Append([]string{d.Date, percentCell(d.Slot1), barCell(d.Slot1), percentCell(d.Slot2)})
	}
	_ = table.Render()

	var summary string
	if n := len(log.History); n > 0 {
		last := time.UnixMilli(log.History[n-1].TimestampMs)
		summary = fmt.Sprintf("%d of %d days, last reading %s\n",
			len(recent), len(log.Daily), humanize.RelTime(last, now, "ago", "from now"))
	} else {
		summary = fmt.Sprintf("%d of %d days\n", len(recent), len(log.Daily))
	}
	return buf.String() + summary
}

func percentCell(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", *v)
}

func barCell(v *float64) string {
	if v == nil {
		return ""
	}
	return components.TextBar(*v / 100)
}
