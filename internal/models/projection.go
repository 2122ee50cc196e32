package models

import "time"

// ProjectionStatus indicates how urgently a window is heading for its limit.
type ProjectionStatus string

const (
	ProjectionSafe     ProjectionStatus = "SAFE"
	ProjectionWarning  ProjectionStatus = "WARNING"
	ProjectionCritical ProjectionStatus = "CRITICAL"
	ProjectionUnknown  ProjectionStatus = "UNKNOWN"
)

// Confidence grades how many readings a projection rests on.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Projection estimates when a rolling window reaches 100% if consumption
// continues at its recent rate.
type Projection struct {
	DepleteAt         time.Time // zero when the window is not filling
	ResetAt           time.Time // zero when the reset time is unknown
	Rate              float64   // percentage points per hour
	HoursLeft         float64   // +Inf when the window is not filling
	DataPoints        int       // readings since the window last reset
	WillDepleteBefore bool      // limit is reached before the reset
	Status            ProjectionStatus
	Confidence        Confidence
}

// Known reports whether there was enough data to project.
func (p Projection) Known() bool {
	return p.Status != "" && p.Status != ProjectionUnknown
}
