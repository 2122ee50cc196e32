package services

import (
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// CredentialInfo describes the credential used by the last cycle without
// exposing the token.
type CredentialInfo struct {
	ExpiresAt *time.Time
	Source    models.TokenSource
	Kind      models.TokenKind
	Masked    string
}

// State is everything the presentation layer reads. Rolling and Bucketed
// are the last good snapshots; at most one is set, matching the kind of the
// last credential that succeeded.
type State struct {
	LastSuccess     time.Time
	LastAttempt     time.Time
	Rolling         *models.RollingWindowSnapshot
	Bucketed        *models.BucketedTotalsSnapshot
	LastError       *models.UsageError
	Credential      *CredentialInfo
	FiveHourTrend   models.Trend
	SevenDayTrend   models.Trend
	FiveHourProj    models.Projection
	SevenDayProj    models.Projection
	LastErrorKind   models.ErrorKind
	History         []models.HistoryTuple
	Daily           []models.DailyAggregate
	Display         models.DisplayOptions
	RefreshInterval time.Duration
	Refreshing      bool
}

// Snapshot returns whichever snapshot is held, or nil.
func (s State) Snapshot() models.Snapshot {
	switch {
	case s.Rolling != nil:
		return s.Rolling
	case s.Bucketed != nil:
		return s.Bucketed
	default:
		return nil
	}
}

// HasData reports whether any snapshot has been fetched.
func (s State) HasData() bool {
	return s.Rolling != nil || s.Bucketed != nil
}

// TrendFor returns the trend of a window by key. Only the five-hour and
// seven-day windows carry one.
func (s State) TrendFor(windowKey string) models.Trend {
	switch windowKey {
	case "five_hour":
		return s.FiveHourTrend
	case "seven_day":
		return s.SevenDayTrend
	default:
		return models.Trend{}
	}
}

// ProjectionFor returns the depletion projection of a window by key. Only
// the five-hour and seven-day windows are projected.
func (s State) ProjectionFor(windowKey string) models.Projection {
	switch windowKey {
	case "five_hour":
		return s.FiveHourProj
	case "seven_day":
		return s.SevenDayProj
	default:
		return models.Projection{}
	}
}

// clone copies the slices so readers never share backing arrays with the manager.
func (s State) clone() State {
	out := s
	out.History = append([]models.HistoryTuple(nil), s.History...)
	out.Daily = append([]models.DailyAggregate(nil), s.Daily...)
	if s.Credential != nil {
		c := *s.Credential
		out.Credential = &c
	}
	return out
}
