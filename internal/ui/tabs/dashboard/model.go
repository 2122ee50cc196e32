// Package dashboard provides the usage detail tab.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/app"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/ui/components"
)

// animationDuration is how long a bar takes to glide to a new reading.
const animationDuration = 1500 * time.Millisecond

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	Breakdown key.Binding
	Up        key.Binding
	Down      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Breakdown: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "model breakdown"),
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

// AnimationState tracks one bar easing toward its latest utilization.
type AnimationState struct {
	StartTime time.Time
	Current   float64
	Target    float64
	Start     float64
}

// Model represents the dashboard tab state.
type Model struct {
	state      *app.State
	animations map[string]*AnimationState
	now        func() time.Time
	spinner    components.Spinner
	usageBar   components.UsageBar
	keys       keyMap
	viewport   viewport.Model
	width      int
	height     int

	// breakdown is the user's toggle; nil follows the settings file.
	breakdown *bool
}

// New creates a new dashboard model.
func New(state *app.State) *Model {
	return &Model{
		state:      state,
		animations: make(map[string]*AnimationState),
		now:        time.Now,
		spinner:    components.NewSpinner("Loading usage..."),
		usageBar:   components.NewUsageBar(),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		if m.step(time.Time(msg)) {
			cmds = append(cmds, animationTickCmd())
		}

	case app.StateLoadedMsg:
		if m.syncTargets(m.now()) {
			cmds = append(cmds, animationTickCmd())
		}

	case app.ServiceEventMsg:
		if _, ok := msg.Event.(services.StateEvent); ok && m.syncTargets(m.now()) {
			cmds = append(cmds, animationTickCmd())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		if !m.state.Loaded() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Breakdown) {
		show := !m.ShowBreakdown()
		m.breakdown = &show
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

// ShowBreakdown reports whether the per-model weekly windows are shown.
func (m *Model) ShowBreakdown() bool {
	if m.breakdown != nil {
		return *m.breakdown
	}
	return m.state.Usage().Display.ShowModelBreakdown
}

// SetSize sets the available size for the dashboard.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// syncTargets points every window's animation at its latest reading and
// reports whether any bar has somewhere to go.
func (m *Model) syncTargets(now time.Time) bool {
	rolling := m.state.Usage().Rolling
	if rolling == nil {
		return false
	}

	animating := false
	for _, w := range rolling.Windows() {
		if w.Reading == nil {
			continue
		}
		anim, ok := m.animations[w.Key]
		if !ok {
			anim = &AnimationState{StartTime: now}
			m.animations[w.Key] = anim
		}
		if anim.Target != w.Reading.Utilization {
			anim.Start = anim.Current
			anim.Target = w.Reading.Utilization
			anim.StartTime = now
		}
		if anim.Current != anim.Target {
			animating = true
		}
	}
	return animating
}

// step advances the animations with an ease-out curve.
func (m *Model) step(now time.Time) bool {
	animating := false
	for _, anim := range m.animations {
		if anim.Current == anim.Target {
			continue
		}
		elapsed := now.Sub(anim.StartTime)
		if elapsed >= animationDuration {
			anim.Current = anim.Target
			continue
		}
		progress := float64(elapsed) / float64(animationDuration)
		ease := 1.0 - (1.0-progress)*(1.0-progress)
		anim.Current = anim.Start + (anim.Target-anim.Start)*ease
		animating = true
	}
	return animating
}

// displayFraction is the animated value for a window. Readings that arrived
// while the tab was hidden have no animation toward them and show as is.
func (m *Model) displayFraction(windowKey string, actual float64) float64 {
	if anim, ok := m.animations[windowKey]; ok && anim.Target == actual {
		return anim.Current
	}
	return actual
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Breakdown, m.keys.Up, m.keys.Down}
}
