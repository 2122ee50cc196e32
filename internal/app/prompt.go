package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// ErrPromptCancelled is returned by ReadToken when the user backs out.
var ErrPromptCancelled = errors.New("token entry cancelled")

// TokenSubmittedMsg is sent when the user confirms a non-empty token.
type TokenSubmittedMsg struct {
	Token string
}

// TokenCancelledMsg is sent when the prompt is dismissed without a token.
type TokenCancelledMsg struct{}

// TokenPrompt is a masked single-line input for a manual token.
type TokenPrompt struct {
	input  textinput.Model
	active bool
}

// NewTokenPrompt creates a closed prompt.
func NewTokenPrompt() TokenPrompt {
	ti := textinput.New()
	ti.Placeholder = "sk-ant-... or OAuth access token"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 512
	ti.Width = 48
	return TokenPrompt{input: ti}
}

// Open clears and focuses the input.
func (p *TokenPrompt) Open() tea.Cmd {
	p.active = true
	p.input.Reset()
	return tea.Batch(p.input.Focus(), textinput.Blink)
}

// Close hides the prompt.
func (p *TokenPrompt) Close() {
	p.active = false
	p.input.Blur()
	p.input.Reset()
}

// Active reports whether the prompt is open.
func (p TokenPrompt) Active() bool {
	return p.active
}

// Update handles input while the prompt is open. Enter with an empty value
// cancels, like Esc.
func (p TokenPrompt) Update(msg tea.Msg) (TokenPrompt, tea.Cmd) {
	if !p.active {
		return p, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			token := strings.TrimSpace(p.input.Value())
			p.Close()
			if token == "" {
				return p, func() tea.Msg { return TokenCancelledMsg{} }
			}
			return p, func() tea.Msg { return TokenSubmittedMsg{Token: token} }
		case tea.KeyEsc:
			p.Close()
			return p, func() tea.Msg { return TokenCancelledMsg{} }
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// View renders the prompt box.
func (p TokenPrompt) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Configure Token"),
		"Paste a Claude OAuth token or an admin key (sk-ant-admin-...).",
		"",
		p.input.View(),
		"",
		styles.HelpStyle.Render("enter save • esc cancel"),
	)
	return styles.ModalContentStyle.Render(body)
}

// promptProgram runs a TokenPrompt on its own, outside the dashboard.
type promptProgram struct {
	prompt    TokenPrompt
	token     string
	cancelled bool
}

func (m *promptProgram) Init() tea.Cmd {
	return m.prompt.Open()
}

func (m *promptProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TokenSubmittedMsg:
		m.token = msg.Token
		return m, tea.Quit
	case TokenCancelledMsg:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *promptProgram) View() string {
	if m.token != "" || m.cancelled {
		return ""
	}
	return m.prompt.View() + "\n"
}

// ReadToken asks for a token in the terminal with the input masked.
func ReadToken() (string, error) {
	final, err := tea.NewProgram(&promptProgram{prompt: NewTokenPrompt()}).Run()
	if err != nil {
		return "", err
	}
	pm, ok := final.(*promptProgram)
	if !ok || pm.cancelled || pm.token == "" {
		return "", ErrPromptCancelled
	}
	return pm.token, nil
}
