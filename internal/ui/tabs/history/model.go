// Package history provides the tab charting recorded usage over time.
package history

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/app"
)

// Range selects which log the tab charts.
type Range int

const (
	// RangeRecent charts the per-refresh readings.
	RangeRecent Range = iota
	// RangeDaily charts one point per day.
	RangeDaily
)

// String returns the display name of the range.
func (r Range) String() string {
	if r == RangeDaily {
		return "Daily"
	}
	return "Recent"
}

// Next cycles to the other range.
func (r Range) Next() Range {
	if r == RangeRecent {
		return RangeDaily
	}
	return RangeRecent
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "recent/daily"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the history tab state.
type Model struct {
	state     *app.State
	now       func() time.Time
	keys      keyMap
	viewport  viewport.Model
	timeRange Range
	width     int
	height    int
}

// New creates a new history model.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		now:      time.Now,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.ToggleRange) {
		m.timeRange = m.timeRange.Next()
		m.viewport.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

// Range returns the range being charted.
func (m *Model) Range() Range {
	return m.timeRange
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleRange, m.keys.Up, m.keys.Down}
}
