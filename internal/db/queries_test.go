package db

import (
	"context"
	"testing"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

func TestGetValue_Missing(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, ok, err := db.GetValue(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestPutValue_Upsert(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.PutValue(ctx, "k", "one"); err != nil {
		t.Fatalf("PutValue failed: %v", err)
	}
	if err := db.PutValue(ctx, "k", "two"); err != nil {
		t.Fatalf("PutValue failed: %v", err)
	}

	got, ok, err := db.GetValue(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("GetValue = %q, %v, %v", got, ok, err)
	}
	if got != "two" {
		t.Errorf("GetValue = %q, want %q", got, "two")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv_store").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestDeleteValue(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.PutValue(ctx, "k", "v")
	if err := db.DeleteValue(ctx, "k"); err != nil {
		t.Fatalf("DeleteValue failed: %v", err)
	}
	if _, ok, _ := db.GetValue(ctx, "k"); ok {
		t.Error("key still present after delete")
	}
	if err := db.DeleteValue(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	empty, err := db.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty history, got %d entries", len(empty))
	}

	entries := []models.HistoryTuple{
		{TimestampMs: 1000, Slot1: models.Float(12.5), Slot2: nil},
		{TimestampMs: 2000, Slot1: models.Float(13), Slot2: models.Float(40)},
	}
	if err := db.SaveHistory(ctx, entries); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	raw, _, _ := db.GetValue(ctx, KeyUsageHistory)
	if raw != "[[1000,12.5,null],[2000,13,40]]" {
		t.Errorf("stored value = %s", raw)
	}

	got, err := db.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(got) != 2 || got[0].Slot2 != nil || *got[1].Slot2 != 40 {
		t.Errorf("LoadHistory = %+v", got)
	}
}

func TestDailyRoundTrip(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	entries := []models.DailyAggregate{
		{Date: "2026-10-14", Slot1: models.Float(80), Slot2: models.Float(55)},
	}
	if err := db.SaveDaily(ctx, entries); err != nil {
		t.Fatalf("SaveDaily failed: %v", err)
	}

	raw, _, _ := db.GetValue(ctx, KeyDailyHistory)
	if raw != `[["2026-10-14",80,55]]` {
		t.Errorf("stored value = %s", raw)
	}

	got, err := db.LoadDaily(ctx)
	if err != nil {
		t.Fatalf("LoadDaily failed: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2026-10-14" || *got[0].Slot1 != 80 {
		t.Errorf("LoadDaily = %+v", got)
	}
}

func TestLoadHistory_CorruptValue(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.PutValue(ctx, KeyUsageHistory, "{not json")
	if _, err := db.LoadHistory(ctx); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveHistory_NilStoresEmptyArray(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.SaveHistory(ctx, nil); err != nil {
		t.Fatal(err)
	}
	raw, ok, _ := db.GetValue(ctx, KeyUsageHistory)
	if !ok || raw != "[]" {
		t.Errorf("stored value = %q, %v", raw, ok)
	}
}

func TestUpdateLogs_PassesStoredAndWritesResult(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.SaveHistory(ctx, []models.HistoryTuple{{TimestampMs: 1, Slot1: models.Float(5)}})

	var seen int
	err := db.UpdateLogs(ctx, func(stored []models.HistoryTuple, storedDaily []models.DailyAggregate) ([]models.HistoryTuple, []models.DailyAggregate) {
		seen = len(stored)
		if len(storedDaily) != 0 {
			t.Errorf("storedDaily = %+v, want empty", storedDaily)
		}
		return append(stored, models.HistoryTuple{TimestampMs: 2}),
			[]models.DailyAggregate{{Date: "2026-10-15", Slot1: models.Float(5)}}
	})
	if err != nil {
		t.Fatalf("UpdateLogs failed: %v", err)
	}
	if seen != 1 {
		t.Errorf("merge saw %d stored entries, want 1", seen)
	}

	history, _ := db.LoadHistory(ctx)
	daily, _ := db.LoadDaily(ctx)
	if len(history) != 2 || len(daily) != 1 {
		t.Errorf("after update: history=%+v daily=%+v", history, daily)
	}
}

func TestUpdateLogs_CorruptValueTreatedAsEmpty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.PutValue(ctx, KeyUsageHistory, "{not json")
	err := db.UpdateLogs(ctx, func(stored []models.HistoryTuple, _ []models.DailyAggregate) ([]models.HistoryTuple, []models.DailyAggregate) {
		if stored != nil {
			t.Errorf("stored = %+v, want nil", stored)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("UpdateLogs failed: %v", err)
	}

	for _, key := range []string{KeyUsageHistory, KeyDailyHistory} {
		raw, ok, _ := db.GetValue(ctx, key)
		if !ok || raw != "[]" {
			t.Errorf("%s = %q, %v; want []", key, raw, ok)
		}
	}
}
