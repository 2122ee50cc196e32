// Package projection estimates when a usage window will hit its limit from
// the recent readings in the history log.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

const (
	lowConfidencePoints    = 6
	mediumConfidencePoints = 24

	// resetDrop is the fall in percentage points that marks a window reset
	// between two readings.
	resetDrop = 5

	// minSpan is the shortest stretch of readings a rate is computed over.
	minSpan = 5 * time.Minute
)

type point struct {
	at    time.Time
	value float64
}

// Estimate projects the window in the given history slot (1 five-hour, 2
// seven-day). Only readings since the window last reset count toward the
// rate. With fewer than two such readings the status is unknown.
func Estimate(history []models.HistoryTuple, slot int, reading *models.RollingWindowReading, now time.Time) models.Projection {
	proj := models.Projection{
		Status:     models.ProjectionUnknown,
		Confidence: models.ConfidenceLow,
		HoursLeft:  math.Inf(1),
	}
	if reading == nil {
		return proj
	}
	if reset, ok := reading.ResetTime(); ok {
		proj.ResetAt = reset
	}

	points := sinceLastReset(history, slot)
	proj.DataPoints = len(points)
	switch {
	case len(points) >= mediumConfidencePoints:
		proj.Confidence = models.ConfidenceHigh
	case len(points) >= lowConfidencePoints:
		proj.Confidence = models.ConfidenceMedium
	}

	current := reading.Utilization * 100
	if current >= 100 {
		proj.Status = models.ProjectionCritical
		proj.HoursLeft = 0
		proj.DepleteAt = now
		proj.WillDepleteBefore = true
		return proj
	}

	if len(points) < 2 {
		return proj
	}
	first, last := points[0], points[len(points)-1]
	span := last.at.Sub(first.at)
	if span < minSpan {
		return proj
	}

	proj.Rate = (last.value - first.value) / span.Hours()
	if proj.Rate <= 0 {
		proj.Rate = 0
		proj.Status = models.ProjectionSafe
		return proj
	}

	proj.HoursLeft = (100 - current) / proj.Rate
	proj.DepleteAt = now.Add(time.Duration(proj.HoursLeft * float64(time.Hour)))
	proj.WillDepleteBefore = proj.ResetAt.IsZero() || proj.DepleteAt.Before(proj.ResetAt)

	switch {
	case !proj.WillDepleteBefore:
		proj.Status = models.ProjectionSafe
	case proj.HoursLeft < 1:
		proj.Status = models.ProjectionCritical
	default:
		proj.Status = models.ProjectionWarning
	}
	return proj
}

// sinceLastReset returns the slot's readings after the most recent drop.
func sinceLastReset(history []models.HistoryTuple, slot int) []point {
	var points []point
	for _, h := range history {
		v := h.Slot(slot)
		if v == nil {
			continue
		}
		p := point{at: time.UnixMilli(h.TimestampMs), value: *v}
		if n := len(points); n > 0 && p.value < points[n-1].value-resetDrop {
			points = points[:0]
		}
		points = append(points, p)
	}
	return points
}

// FormatHours renders a duration in hours as "2h 05m" or "1d 03h".
func FormatHours(hours float64) string {
	if hours <= 0 || math.IsInf(hours, 0) || math.IsNaN(hours) {
		return "---"
	}

	h := int(hours)
	m := int((hours - float64(h)) * 60)

	if h >= 24 {
		return fmt.Sprintf("%dd %02dh", h/24, h%24)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

// Summary is a one-line description such as "12.5%/hr, limit in 2h 05m
// (before reset)".
func Summary(p models.Projection) string {
	switch {
	case !p.Known():
		return "not enough data to project"
	case p.HoursLeft == 0:
		return "limit reached"
	case p.Rate == 0:
		return "not increasing"
	}

	s := fmt.Sprintf("%.1f%%/hr, limit in %s", p.Rate, FormatHours(p.HoursLeft))
	if p.WillDepleteBefore && !p.ResetAt.IsZero() {
		s += " (before reset)"
	} else if !p.WillDepleteBefore {
		s += " (after reset)"
	}
	return s
}
