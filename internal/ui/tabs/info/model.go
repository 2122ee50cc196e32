// Package info provides the tab showing where settings and data live, the
// settings in effect and build details.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/app"
	"github.com/j-veylop/claude-meter-tui/internal/config"
)

type keyMap struct {
	Reload key.Binding
	Up     key.Binding
	Down   key.Binding
}

// Model is the info tab. The config pointer is shared with the manager, so
// a reload shows up on the next render.
type Model struct {
	state    *app.State
	config   *config.Config
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int
}

// New creates the info tab. cfg may be nil.
func New(state *app.State, cfg *config.Config) *Model {
	return &Model{
		state:  state,
		config: cfg,
		keys: keyMap{
			Reload: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "reload settings")),
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		},
		viewport: viewport.New(0, 0),
	}
}

// Init implements app.Tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update scrolls the page and asks for a settings reload on s.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Reload) {
		if m.config == nil {
			return m, nil
		}
		return m, func() tea.Msg { return app.ReloadSettingsMsg{} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

// SetSize implements app.Tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp implements app.Tab.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Reload, m.keys.Up, m.keys.Down}
}
