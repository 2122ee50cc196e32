package usage

import (
	"strings"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// NormalizeRollingWindows converts the rolling-window payload into a
// snapshot. Percentages become fractions; absent windows stay nil.
func NormalizeRollingWindows(raw *RawRollingWindows, now time.Time) *models.RollingWindowSnapshot {
	snap := &models.RollingWindowSnapshot{FetchedAt: now}
	if raw == nil {
		return snap
	}
	snap.FiveHour = normalizeWindow(raw.FiveHour)
	snap.SevenDay = normalizeWindow(raw.SevenDay)
	snap.SevenDayOpus = normalizeWindow(raw.SevenDayOpus)
	snap.SevenDaySonnet = normalizeWindow(raw.SevenDaySonnet)
	return snap
}

func normalizeWindow(w *RawWindow) *models.RollingWindowReading {
	if w == nil {
		return nil
	}
	return &models.RollingWindowReading{
		Utilization: w.Utilization / 100,
		ResetsAt:    w.ResetsAt,
	}
}

// NormalizeBucketedTotals reduces the usage report to a trailing-week total
// and today's bucket. The week spans from the first bucket's start to the
// last bucket's end. Today is the bucket starting on now's UTC date; when
// several do, the last one wins.
func NormalizeBucketedTotals(raw *RawBucketReport, now time.Time) *models.BucketedTotalsSnapshot {
	snap := &models.BucketedTotalsSnapshot{FetchedAt: now}
	if raw == nil {
		return snap
	}

	todayPrefix := now.UTC().Format("2006-01-02")
	for _, b := range raw.Data {
		summed := sumBucket(b)

		snap.Week.InputTokens += summed.InputTokens
		snap.Week.OutputTokens += summed.OutputTokens
		if snap.Week.StartingAt == "" {
			snap.Week.StartingAt = summed.StartingAt
		}
		snap.Week.EndingAt = summed.EndingAt

		if strings.HasPrefix(summed.StartingAt, todayPrefix) {
			today := summed
			snap.Today = &today
		}
	}
	return snap
}

func sumBucket(b RawBucket) models.TokenBucket {
	out := models.TokenBucket{StartingAt: b.StartingAt, EndingAt: b.EndingAt}
	for _, r := range b.Results {
		out.InputTokens += r.UncachedInputTokens + r.CacheReadInputTokens
		out.OutputTokens += r.OutputTokens
	}
	return out
}
