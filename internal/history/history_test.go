package history

import (
	"math"
	"testing"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

func TestAppendHistory_Bound(t *testing.T) {
	l := New(nil, nil)
	for i := 0; i < 65; i++ {
		l.AppendHistory(models.HistoryTuple{TimestampMs: int64(i), Slot1: models.Float(float64(i))})
	}

	if len(l.History) != MaxHistoryEntries {
		t.Fatalf("len(History) = %d, want %d", len(l.History), MaxHistoryEntries)
	}
	if l.History[0].TimestampMs != 5 {
		t.Errorf("oldest entry = %d, want 5", l.History[0].TimestampMs)
	}
	if l.History[59].TimestampMs != 64 {
		t.Errorf("newest entry = %d, want 64", l.History[59].TimestampMs)
	}
}

func TestNew_TrimsOversizedInput(t *testing.T) {
	daily := make([]models.DailyAggregate, 100)
	for i := range daily {
		daily[i].Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format(DateLayout)
	}
	l := New(nil, daily)
	if len(l.Daily) != MaxDailyEntries {
		t.Fatalf("len(Daily) = %d, want %d", len(l.Daily), MaxDailyEntries)
	}
	if l.Daily[0].Date != daily[10].Date {
		t.Errorf("oldest = %s, want %s", l.Daily[0].Date, daily[10].Date)
	}
}

func TestUpdateDaily_PeakAndLatest(t *testing.T) {
	l := New(nil, nil)
	l.UpdateDaily("2026-10-15", models.Float(40), models.Float(40))
	l.UpdateDaily("2026-10-15", models.Float(25), models.Float(25))

	if len(l.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(l.Daily))
	}
	if got := *l.Daily[0].Slot1; got != 40 {
		t.Errorf("peak = %v, want 40", got)
	}
	if got := *l.Daily[0].Slot2; got != 25 {
		t.Errorf("latest = %v, want 25", got)
	}
}

func TestUpdateDaily_NilAwarePeak(t *testing.T) {
	tests := []struct {
		name     string
		first    *float64
		second   *float64
		wantPeak *float64
	}{
		{"NilThenValue", nil, models.Float(10), models.Float(10)},
		{"ValueThenNil", models.Float(10), nil, models.Float(10)},
		{"BothNil", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(nil, nil)
			l.UpdateDaily("2026-10-15", tt.first, nil)
			l.UpdateDaily("2026-10-15", tt.second, nil)
			got := l.Daily[0].Slot1
			if (got == nil) != (tt.wantPeak == nil) || (got != nil && *got != *tt.wantPeak) {
				t.Errorf("peak = %v, want %v", got, tt.wantPeak)
			}
		})
	}
}

func TestUpdateDaily_NewDayAppendsAndBounds(t *testing.T) {
	l := New(nil, nil)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < MaxDailyEntries+3; i++ {
		l.UpdateDaily(start.AddDate(0, 0, i).Format(DateLayout), models.Float(1), models.Float(1))
	}
	if len(l.Daily) != MaxDailyEntries {
		t.Fatalf("len(Daily) = %d, want %d", len(l.Daily), MaxDailyEntries)
	}
	if l.Daily[0].Date != "2026-01-04" {
		t.Errorf("oldest = %s, want 2026-01-04", l.Daily[0].Date)
	}
}

func TestComputeTrend(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

	tests := []struct {
		name      string
		history   []models.HistoryTuple
		current   float64
		wantDelta *int
		wantDir   models.TrendDirection
	}{
		{
			name: "ComparesAgainstNewestOlderThanAnHour",
			history: []models.HistoryTuple{
				{TimestampMs: at(90 * time.Minute), Slot1: models.Float(50)},
				{TimestampMs: at(30 * time.Minute), Slot1: models.Float(70)},
			},
			current:   75,
			wantDelta: intPtr(25),
			wantDir:   models.TrendUp,
		},
		{
			name: "Down",
			history: []models.HistoryTuple{
				{TimestampMs: at(2 * time.Hour), Slot1: models.Float(80)},
			},
			current:   60,
			wantDelta: intPtr(-20),
			wantDir:   models.TrendDown,
		},
		{
			name: "WithinDeadBand",
			history: []models.HistoryTuple{
				{TimestampMs: at(time.Hour), Slot1: models.Float(50)},
			},
			current:   52,
			wantDelta: intPtr(2),
			wantDir:   models.TrendFlat,
		},
		{
			name: "JustOutsideDeadBand",
			history: []models.HistoryTuple{
				{TimestampMs: at(time.Hour), Slot1: models.Float(50)},
			},
			current:   47,
			wantDelta: intPtr(-3),
			wantDir:   models.TrendDown,
		},
		{
			name: "AllEntriesTooRecent",
			history: []models.HistoryTuple{
				{TimestampMs: at(59 * time.Minute), Slot1: models.Float(10)},
			},
			current: 75,
		},
		{
			name: "PastSlotEmpty",
			history: []models.HistoryTuple{
				{TimestampMs: at(3 * time.Hour), Slot1: models.Float(10)},
				{TimestampMs: at(2 * time.Hour), Slot1: nil},
			},
			current: 75,
		},
		{
			name:    "EmptyHistory",
			current: 75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTrend(tt.history, 1, tt.current, now)
			if tt.wantDelta == nil {
				if got.HasData() {
					t.Fatalf("expected no trend data, got delta %d", *got.Delta)
				}
				return
			}
			if !got.HasData() {
				t.Fatal("expected trend data")
			}
			if *got.Delta != *tt.wantDelta {
				t.Errorf("delta = %d, want %d", *got.Delta, *tt.wantDelta)
			}
			if got.Direction != tt.wantDir {
				t.Errorf("direction = %v, want %v", got.Direction, tt.wantDir)
			}
		})
	}
}

func TestComputeTrend_SecondSlot(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	h := []models.HistoryTuple{{TimestampMs: now.Add(-2 * time.Hour).UnixMilli(), Slot1: models.Float(5), Slot2: models.Float(30)}}

	got := ComputeTrend(h, 2, 35, now)
	if !got.HasData() || *got.Delta != 5 || got.Direction != models.TrendUp {
		t.Errorf("trend = %+v", got)
	}
}

func TestRecord(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)
	l := New(nil, nil)
	l.Record(&models.RollingWindowSnapshot{
		FetchedAt: now,
		FiveHour:  &models.RollingWindowReading{Utilization: 0.264},
	}, now)

	if len(l.History) != 1 {
		t.Fatalf("len(History) = %d, want 1", len(l.History))
	}
	e := l.History[0]
	if e.TimestampMs != now.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", e.TimestampMs, now.UnixMilli())
	}
	if e.Slot1 == nil || *e.Slot1 != 26 {
		t.Errorf("slot1 = %v, want 26", e.Slot1)
	}
	if e.Slot2 != nil {
		t.Errorf("slot2 = %v, want nil for a missing window", *e.Slot2)
	}
	if len(l.Daily) != 1 || l.Daily[0].Date != "2026-10-15" {
		t.Errorf("daily = %+v", l.Daily)
	}

	l.Record(nil, now)
	if len(l.History) != 1 {
		t.Error("recording a nil snapshot should be a no-op")
	}
}

func TestSeries(t *testing.T) {
	l := New([]models.HistoryTuple{
		{TimestampMs: 1, Slot1: models.Float(10)},
		{TimestampMs: 2, Slot1: nil},
		{TimestampMs: 3, Slot1: models.Float(30)},
	}, []models.DailyAggregate{
		{Date: "2026-10-14", Slot2: nil},
	})

	s := l.HistorySeries(1)
	if len(s) != 3 || s[0] != 10 || !math.IsNaN(s[1]) || s[2] != 30 {
		t.Errorf("HistorySeries = %v", s)
	}
	if !HasSeriesData(s) {
		t.Error("HasSeriesData should be true")
	}

	d := l.DailySeries(2)
	if len(d) != 1 || !math.IsNaN(d[0]) {
		t.Errorf("DailySeries = %v", d)
	}
	if HasSeriesData(d) {
		t.Error("HasSeriesData should be false for an all-gap series")
	}
}

func TestLastDays(t *testing.T) {
	l := New(nil, []models.DailyAggregate{{Date: "a"}, {Date: "b"}, {Date: "c"}})
	if got := l.LastDays(2); len(got) != 2 || got[0].Date != "b" {
		t.Errorf("LastDays(2) = %+v", got)
	}
	if got := l.LastDays(10); len(got) != 3 {
		t.Errorf("LastDays(10) len = %d, want 3", len(got))
	}
}

func intPtr(v int) *int { return &v }

func TestMerge_UnitesHistoryByTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	at := func(min int) int64 { return base.Add(time.Duration(min) * time.Minute).UnixMilli() }

	l := New([]models.HistoryTuple{
		{TimestampMs: at(0), Slot1: models.Float(10)},
		{TimestampMs: at(10), Slot1: models.Float(12)},
	}, nil)
	l.Merge([]models.HistoryTuple{
		{TimestampMs: at(0), Slot1: models.Float(10)},
		{TimestampMs: at(5), Slot1: models.Float(11)},
	}, nil)

	want := []int64{at(0), at(5), at(10)}
	if len(l.History) != len(want) {
		t.Fatalf("len(History) = %d, want %d", len(l.History), len(want))
	}
	for i, ts := range want {
		if l.History[i].TimestampMs != ts {
			t.Errorf("History[%d] = %d, want %d", i, l.History[i].TimestampMs, ts)
		}
	}
}

func TestMerge_RebindsHistory(t *testing.T) {
	var own, stored []models.HistoryTuple
	for i := 0; i < 40; i++ {
		own = append(own, models.HistoryTuple{TimestampMs: int64(2 * i)})
		stored = append(stored, models.HistoryTuple{TimestampMs: int64(2*i + 1)})
	}
	l := New(own, nil)
	l.Merge(stored, nil)

	if len(l.History) != MaxHistoryEntries {
		t.Fatalf("len(History) = %d, want %d", len(l.History), MaxHistoryEntries)
	}
	if l.History[0].TimestampMs != 20 {
		t.Errorf("oldest = %d, want 20", l.History[0].TimestampMs)
	}
	if l.History[MaxHistoryEntries-1].TimestampMs != 79 {
		t.Errorf("newest = %d, want 79", l.History[MaxHistoryEntries-1].TimestampMs)
	}
}

func TestMerge_DailyPeakAndLatest(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	date := day.Format(DateLayout)
	earlier := day.AddDate(0, 0, -1).Format(DateLayout)

	l := New(
		[]models.HistoryTuple{{TimestampMs: day.UnixMilli(), Slot1: models.Float(30), Slot2: models.Float(40)}},
		[]models.DailyAggregate{{Date: date, Slot1: models.Float(30), Slot2: models.Float(40)}},
	)
	l.Merge(
		[]models.HistoryTuple{{TimestampMs: day.Add(time.Hour).UnixMilli(), Slot1: models.Float(25), Slot2: models.Float(42)}},
		[]models.DailyAggregate{
			{Date: earlier, Slot1: models.Float(70), Slot2: models.Float(35)},
			{Date: date, Slot1: models.Float(55), Slot2: models.Float(42)},
		},
	)

	if len(l.Daily) != 2 {
		t.Fatalf("len(Daily) = %d, want 2", len(l.Daily))
	}
	if l.Daily[0].Date != earlier || l.Daily[1].Date != date {
		t.Fatalf("dates = %s, %s; want %s, %s", l.Daily[0].Date, l.Daily[1].Date, earlier, date)
	}
	tests := []struct {
		name string
		got  *float64
		want float64
	}{
		{"stored day slot1", l.Daily[0].Slot1, 70},
		{"stored day slot2", l.Daily[0].Slot2, 35},
		{"shared day peak", l.Daily[1].Slot1, 55},
		{"shared day latest", l.Daily[1].Slot2, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == nil || *tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestMerge_EmptyStoredKeepsOwn(t *testing.T) {
	l := New(
		[]models.HistoryTuple{{TimestampMs: 1}},
		[]models.DailyAggregate{{Date: "2026-03-10", Slot1: models.Float(5)}},
	)
	l.Merge(nil, nil)

	if len(l.History) != 1 || len(l.Daily) != 1 {
		t.Fatalf("History=%d Daily=%d, want 1 and 1", len(l.History), len(l.Daily))
	}
	if *l.Daily[0].Slot1 != 5 {
		t.Errorf("Slot1 = %v, want 5", *l.Daily[0].Slot1)
	}
}
