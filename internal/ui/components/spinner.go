package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

var spinnerLabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)

// Spinner is the animated indicator shown while the first usage fetch is
// in flight. The label says what is being waited on.
type Spinner struct {
	model spinner.Model
	label string
}

// NewSpinner returns a spinner labelled with what it waits for.
func NewSpinner(label string) Spinner {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
	)
	return Spinner{model: s, label: label}
}

// Update advances the animation on its own tick messages.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.model, cmd = s.model.Update(msg)
	return s, cmd
}

// Tick starts the animation.
func (s Spinner) Tick() tea.Cmd {
	return s.model.Tick
}

// View renders the bare glyph, used as a toast prefix.
func (s Spinner) View() string {
	return s.model.View()
}

// ViewWithLabel renders the glyph followed by the label.
func (s Spinner) ViewWithLabel() string {
	return s.model.View() + " " + spinnerLabelStyle.Render(s.label)
}

// RenderSpinnerCentered places the labelled spinner in the middle of a
// width x height area.
func RenderSpinnerCentered(s Spinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
