// Package history keeps the bounded short-interval and daily usage logs and
// computes trends against them.
package history

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Bounds of the two logs.
const (
	MaxHistoryEntries = 60
	MaxDailyEntries   = 90
)

// TrendWindow is how far back a trend compares against.
const TrendWindow = time.Hour

// trendDeadBand is the delta, in percentage points, below which a change is flat.
const trendDeadBand = 2

// DateLayout is the format of daily aggregate dates.
const DateLayout = "2006-01-02"

// Log holds the in-memory copy of both durable logs. It is not safe for
// concurrent use; the owner serializes access and persists after mutation.
type Log struct {
	History []models.HistoryTuple
	Daily   []models.DailyAggregate
}

// New returns a log seeded with previously persisted entries. Oversized
// inputs are trimmed to the bounds.
func New(history []models.HistoryTuple, daily []models.DailyAggregate) *Log {
	return &Log{
		History: trimOldest(history, MaxHistoryEntries),
		Daily:   trimOldest(daily, MaxDailyEntries),
	}
}

// AppendHistory adds a reading and evicts the oldest beyond MaxHistoryEntries.
func (l *Log) AppendHistory(entry models.HistoryTuple) {
	l.History = trimOldest(append(l.History, entry), MaxHistoryEntries)
}

// UpdateDaily merges a reading into the entry for date, creating it when
// absent. Slot 1 keeps the day's peak and slot 2 the latest value.
func (l *Log) UpdateDaily(date string, slot1, slot2 *float64) {
	for i := range l.Daily {
		if l.Daily[i].Date != date {
			continue
		}
		l.Daily[i].Slot1 = peak(l.Daily[i].Slot1, slot1)
		l.Daily[i].Slot2 = slot2
		return
	}
	l.Daily = trimOldest(append(l.Daily, models.DailyAggregate{
		Date:  date,
		Slot1: slot1,
		Slot2: slot2,
	}), MaxDailyEntries)
}

// Merge folds entries persisted by another writer into the log. History is
// united by timestamp and daily aggregates by date, then both are re-bounded.
// A day's slot 1 keeps the peak of both sides; slot 2 keeps the value of
// whichever side holds the newer reading.
func (l *Log) Merge(history []models.HistoryTuple, daily []models.DailyAggregate) {
	storedNewer := newest(history) > newest(l.History)

	merged := lo.UniqBy(append(slices.Clone(l.History), history...), func(e models.HistoryTuple) int64 {
		return e.TimestampMs
	})
	slices.SortStableFunc(merged, func(a, b models.HistoryTuple) int {
		return cmp.Compare(a.TimestampMs, b.TimestampMs)
	})

	byDate := lo.SliceToMap(daily, func(d models.DailyAggregate) (string, models.DailyAggregate) {
		return d.Date, d
	})
	for _, own := range l.Daily {
		stored, ok := byDate[own.Date]
		if !ok {
			byDate[own.Date] = own
			continue
		}
		stored.Slot1 = peak(stored.Slot1, own.Slot1)
		if (!storedNewer && own.Slot2 != nil) || stored.Slot2 == nil {
			stored.Slot2 = own.Slot2
		}
		byDate[own.Date] = stored
	}
	days := lo.Values(byDate)
	slices.SortFunc(days, func(a, b models.DailyAggregate) int {
		return cmp.Compare(a.Date, b.Date)
	})

	l.History = trimOldest(merged, MaxHistoryEntries)
	l.Daily = trimOldest(days, MaxDailyEntries)
}

// Record appends a reading derived from a rolling-window snapshot and folds
// it into today's aggregate. The slots are the rounded five-hour and
// seven-day percentages.
func (l *Log) Record(snap *models.RollingWindowSnapshot, now time.Time) {
	if snap == nil {
		return
	}
	slot1 := percentOf(snap.FiveHour)
	slot2 := percentOf(snap.SevenDay)
	l.AppendHistory(models.HistoryTuple{
		TimestampMs: now.UnixMilli(),
		Slot1:       slot1,
		Slot2:       slot2,
	})
	l.UpdateDaily(now.Format(DateLayout), slot1, slot2)
}

// Trend compares current against this log's history.
func (l *Log) Trend(slot int, current float64, now time.Time) models.Trend {
	return ComputeTrend(l.History, slot, current, now)
}

// ComputeTrend compares current with the newest entry at least TrendWindow
// old. Without such an entry, or when its slot is empty, the trend has no data.
func ComputeTrend(history []models.HistoryTuple, slot int, current float64, now time.Time) models.Trend {
	cutoff := now.Add(-TrendWindow).UnixMilli()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].TimestampMs > cutoff {
			continue
		}
		past := history[i].Slot(slot)
		if past == nil {
			return models.Trend{}
		}
		delta := models.RoundPercent(current - *past)
		dir := models.TrendFlat
		switch {
		case delta > trendDeadBand:
			dir = models.TrendUp
		case delta < -trendDeadBand:
			dir = models.TrendDown
		}
		return models.Trend{Delta: &delta, Direction: dir}
	}
	return models.Trend{}
}

// HistorySeries returns the slot values in order, with gaps as NaN.
func (l *Log) HistorySeries(slot int) []float64 {
	return lo.Map(l.History, func(e models.HistoryTuple, _ int) float64 {
		return valueOrNaN(e.Slot(slot))
	})
}

// DailySeries returns the slot values in order, with gaps as NaN.
func (l *Log) DailySeries(slot int) []float64 {
	return lo.Map(l.Daily, func(e models.DailyAggregate, _ int) float64 {
		return valueOrNaN(e.Slot(slot))
	})
}

// HasSeriesData reports whether a series holds at least one real value.
func HasSeriesData(series []float64) bool {
	return lo.ContainsBy(series, func(v float64) bool { return !math.IsNaN(v) })
}

// LastDays returns up to n most recent daily entries, oldest first.
func (l *Log) LastDays(n int) []models.DailyAggregate {
	if n <= 0 || n >= len(l.Daily) {
		return l.Daily
	}
	return l.Daily[len(l.Daily)-n:]
}

func percentOf(r *models.RollingWindowReading) *float64 {
	if r == nil {
		return nil
	}
	return models.Float(float64(r.Percent()))
}

func peak(existing, incoming *float64) *float64 {
	switch {
	case incoming == nil:
		return existing
	case existing == nil:
		return incoming
	default:
		return models.Float(math.Max(*existing, *incoming))
	}
}

func newest(history []models.HistoryTuple) int64 {
	return lo.Reduce(history, func(acc int64, e models.HistoryTuple, _ int) int64 {
		return max(acc, e.TimestampMs)
	}, math.MinInt64)
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func trimOldest[T any](s []T, limit int) []T {
	if len(s) <= limit {
		return s
	}
	return append([]T(nil), s[len(s)-limit:]...)
}
