package models

import (
	"fmt"
	"time"
)

// Snapshot is a normalized usage reading. It is implemented by
// *RollingWindowSnapshot and *BucketedTotalsSnapshot.
type Snapshot interface {
	isSnapshot()
	FetchedTime() time.Time
}

// RollingWindowReading is one subscription usage window.
type RollingWindowReading struct {
	ResetsAt    string  `json:"resetsAt"`
	Utilization float64 `json:"utilization"` // fraction, 1.0 = 100%
}

// Percent returns the utilization as a rounded percentage.
func (r RollingWindowReading) Percent() int {
	return RoundPercent(r.Utilization * 100)
}

// ResetTime parses ResetsAt. The second value is false when it is not a valid timestamp.
func (r RollingWindowReading) ResetTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, r.ResetsAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RollingWindowSnapshot aggregates the subscription windows from a single fetch.
// Windows absent from the payload are nil, never zero.
type RollingWindowSnapshot struct {
	FetchedAt      time.Time             `json:"fetchedAt"`
	FiveHour       *RollingWindowReading `json:"fiveHour"`
	SevenDay       *RollingWindowReading `json:"sevenDay"`
	SevenDayOpus   *RollingWindowReading `json:"sevenDayOpus"`
	SevenDaySonnet *RollingWindowReading `json:"sevenDaySonnet"`
}

func (*RollingWindowSnapshot) isSnapshot() {}

// FetchedTime returns when the snapshot was taken.
func (s *RollingWindowSnapshot) FetchedTime() time.Time { return s.FetchedAt }

// NamedWindow pairs a window with its display label and key.
type NamedWindow struct {
	Reading *RollingWindowReading
	Key     string
	Label   string
}

// Windows returns the four windows in display order, including nil ones.
func (s *RollingWindowSnapshot) Windows() []NamedWindow {
	return []NamedWindow{
		{Key: "five_hour", Label: "Daily", Reading: s.FiveHour},
		{Key: "seven_day", Label: "Weekly", Reading: s.SevenDay},
		{Key: "seven_day_opus", Label: "Weekly (Opus)", Reading: s.SevenDayOpus},
		{Key: "seven_day_sonnet", Label: "Weekly (Sonnet)", Reading: s.SevenDaySonnet},
	}
}

// TokenBucket is a summed usage report bucket.
type TokenBucket struct {
	StartingAt   string `json:"startingAt"`
	EndingAt     string `json:"endingAt"`
	InputTokens  int64  `json:"inputTokens"` // uncached input + cache reads
	OutputTokens int64  `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (b TokenBucket) Total() int64 {
	return b.InputTokens + b.OutputTokens
}

// BucketedTotalsSnapshot is the enterprise usage report reduced to today and the trailing week.
type BucketedTotalsSnapshot struct {
	FetchedAt time.Time    `json:"fetchedAt"`
	Today     *TokenBucket `json:"today"`
	Week      TokenBucket  `json:"week"`
}

func (*BucketedTotalsSnapshot) isSnapshot() {}

// FetchedTime returns when the snapshot was taken.
func (s *BucketedTotalsSnapshot) FetchedTime() time.Time { return s.FetchedAt }

// FormatTokens formats large token counts compactly: 1200000 → "1.2M", 45000 → "45k".
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%dk", (n+500)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
