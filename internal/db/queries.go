package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Keys of the persisted series.
const (
	KeyUsageHistory = "usageHistory"
	KeyDailyHistory = "dailyHistory"
)

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetValue returns the raw value stored under key. The boolean reports
// whether the key exists.
func (db *DB) GetValue(ctx context.Context, key string) (string, bool, error) {
	return getValue(ctx, db, key)
}

// PutValue stores value under key, replacing any previous value.
func (db *DB) PutValue(ctx context.Context, key, value string) error {
	return putValue(ctx, db, key, value)
}

func getValue(ctx context.Context, q execQuerier, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func putValue(ctx context.Context, q execQuerier, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, value, time.Now().UTC().Format("2006-01-02 15:04:05")); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Missing keys are not an error.
func (db *DB) DeleteValue(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value under key into v. It returns false when the key
// is absent, leaving v untouched.
func (db *DB) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := db.GetValue(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func (db *DB) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return db.PutValue(ctx, key, string(data))
}

// LoadHistory returns the persisted history tuples. A missing key or an
// unreadable value yields an empty slice.
func (db *DB) LoadHistory(ctx context.Context) ([]models.HistoryTuple, error) {
	var out []models.HistoryTuple
	if _, err := db.GetJSON(ctx, KeyUsageHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveHistory persists the history tuples.
func (db *DB) SaveHistory(ctx context.Context, entries []models.HistoryTuple) error {
	if entries == nil {
		entries = []models.HistoryTuple{}
	}
	return db.PutJSON(ctx, KeyUsageHistory, entries)
}

// LoadDaily returns the persisted daily aggregates.
func (db *DB) LoadDaily(ctx context.Context) ([]models.DailyAggregate, error) {
	var out []models.DailyAggregate
	if _, err := db.GetJSON(ctx, KeyDailyHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDaily persists the daily aggregates.
func (db *DB) SaveDaily(ctx context.Context, entries []models.DailyAggregate) error {
	if entries == nil {
		entries = []models.DailyAggregate{}
	}
	return db.PutJSON(ctx, KeyDailyHistory, entries)
}

// LogMerger combines the logs currently stored with the caller's copy and
// returns what should be written back.
type LogMerger func(stored []models.HistoryTuple, storedDaily []models.DailyAggregate) ([]models.HistoryTuple, []models.DailyAggregate)

// UpdateLogs reads both logs, passes them to merge and writes the result in
// one write transaction, so a reading persisted by another process between
// the read and the write is never lost. Unreadable stored values are passed
// to merge as empty.
func (db *DB) UpdateLogs(ctx context.Context, merge LogMerger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin log update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Take the write lock before reading so the snapshot cannot go stale
	for _, key := range []string{KeyUsageHistory, KeyDailyHistory} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv_store (key, value) VALUES (?, '[]') ON CONFLICT(key) DO NOTHING`, key); err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
	}

	var stored []models.HistoryTuple
	var storedDaily []models.DailyAggregate
	if raw, ok, err := getValue(ctx, tx, KeyUsageHistory); err != nil {
		return err
	} else if ok {
		if json.Unmarshal([]byte(raw), &stored) != nil {
			stored = nil
		}
	}
	if raw, ok, err := getValue(ctx, tx, KeyDailyHistory); err != nil {
		return err
	} else if ok {
		if json.Unmarshal([]byte(raw), &storedDaily) != nil {
			storedDaily = nil
		}
	}

	entries, daily := merge(stored, storedDaily)
	if entries == nil {
		entries = []models.HistoryTuple{}
	}
	if daily == nil {
		daily = []models.DailyAggregate{}
	}

	for key, v := range map[string]any{KeyUsageHistory: entries, KeyDailyHistory: daily} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := putValue(ctx, tx, key, string(data)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log update: %w", err)
	}
	return nil
}
