package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// HistoryTuple is one short-interval reading: a millisecond timestamp and
// the five-hour (slot 1) and seven-day (slot 2) utilization percentages.
// It is stored as a JSON array [ts, slot1|null, slot2|null].
type HistoryTuple struct {
	Slot1       *float64
	Slot2       *float64
	TimestampMs int64
}

// Slot returns the value of slot 1 or 2. Any other index yields nil.
func (h HistoryTuple) Slot(i int) *float64 {
	switch i {
	case 1:
		return h.Slot1
	case 2:
		return h.Slot2
	default:
		return nil
	}
}

// MarshalJSON encodes the tuple as a three element array.
func (h HistoryTuple) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{h.TimestampMs, h.Slot1, h.Slot2})
}

// UnmarshalJSON decodes a three element array.
func (h *HistoryTuple) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("history tuple: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &h.TimestampMs); err != nil {
		return fmt.Errorf("history tuple timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[1], &h.Slot1); err != nil {
		return fmt.Errorf("history tuple slot 1: %w", err)
	}
	if err := json.Unmarshal(raw[2], &h.Slot2); err != nil {
		return fmt.Errorf("history tuple slot 2: %w", err)
	}
	return nil
}

// DailyAggregate is the per-day summary: slot 1 holds the day's peak and
// slot 2 the most recent value seen that day. Stored as [date, slot1, slot2].
type DailyAggregate struct {
	Slot1 *float64
	Slot2 *float64
	Date  string // YYYY-MM-DD, local calendar day
}

// Slot returns the value of slot 1 or 2. Any other index yields nil.
func (d DailyAggregate) Slot(i int) *float64 {
	switch i {
	case 1:
		return d.Slot1
	case 2:
		return d.Slot2
	default:
		return nil
	}
}

// MarshalJSON encodes the aggregate as a three element array.
func (d DailyAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{d.Date, d.Slot1, d.Slot2})
}

// UnmarshalJSON decodes a three element array.
func (d *DailyAggregate) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("daily aggregate: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &d.Date); err != nil {
		return fmt.Errorf("daily aggregate date: %w", err)
	}
	if err := json.Unmarshal(raw[1], &d.Slot1); err != nil {
		return fmt.Errorf("daily aggregate slot 1: %w", err)
	}
	if err := json.Unmarshal(raw[2], &d.Slot2); err != nil {
		return fmt.Errorf("daily aggregate slot 2: %w", err)
	}
	return nil
}

// TrendDirection is the direction of change against the reading an hour ago.
type TrendDirection int

const (
	TrendFlat TrendDirection = iota
	TrendUp
	TrendDown
)

// Arrow returns the glyph for the direction.
func (d TrendDirection) Arrow() string {
	switch d {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	default:
		return "→"
	}
}

// Trend compares a current value with a past one. A nil Delta means there
// was no comparable reading, which is not the same as a flat trend.
type Trend struct {
	Delta     *int
	Direction TrendDirection
}

// HasData reports whether the trend was computed from a real reading.
func (t Trend) HasData() bool {
	return t.Delta != nil
}

// String renders the trend as "↑ +25% vs 1h ago", or "" without data.
func (t Trend) String() string {
	if t.Delta == nil {
		return ""
	}
	sign := ""
	if *t.Delta >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s %s%d%% vs 1h ago", t.Direction.Arrow(), sign, *t.Delta)
}

// RoundPercent rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func RoundPercent(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
