package models

// StatusPosition is where the compact indicator is drawn.
type StatusPosition string

const (
	StatusLeft  StatusPosition = "left"
	StatusRight StatusPosition = "right"
)

// DisplayOptions are the presentation settings the core passes through to
// the rendering layer.
type DisplayOptions struct {
	Position           StatusPosition
	Priority           int
	ShowModelBreakdown bool
}
