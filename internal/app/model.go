package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/claude-meter-tui/internal/config"
	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/services/notifier"
	"github.com/j-veylop/claude-meter-tui/internal/ui/components"
	"github.com/j-veylop/claude-meter-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabDashboard is the ID for the dashboard tab.
	TabDashboard TabID = iota
	// TabHistory is the ID for the history tab.
	TabHistory
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabDashboard:
		return "Dashboard"
	case TabHistory:
		return "History"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// chromeHeight is the rows taken by the navbar and the footer.
const chromeHeight = 5

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1       key.Binding
	Tab2       key.Binding
	Tab3       key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Refresh    key.Binding
	Details    key.Binding
	Token      key.Binding
	ClearToken key.Binding
	Help       key.Binding
	Quit       key.Binding
	Escape     key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		Tab2:       key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "history")),
		Tab3:       key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info")),
		NextTab:    key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab:    key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		Refresh:    key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Details:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
		Token:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "set token")),
		ClearToken: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear token")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp returns key bindings for the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Token, k.Help, k.Quit}
}

// Styles defines the application styles.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Help    lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#C15F25", Dark: "#E87B39"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	return Styles{
		TabBar: lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).BorderForeground(subtle),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().Foreground(subtle).Padding(0, 2),

		NotificationSuccess: lipgloss.NewStyle().Foreground(success).Padding(0, 1),
		NotificationError:   lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1),
		NotificationWarning: lipgloss.NewStyle().Foreground(warning).Padding(0, 1),
		NotificationInfo:    lipgloss.NewStyle().Foreground(info).Padding(0, 1),

		Content: lipgloss.NewStyle().Padding(1, 2),
		Help:    lipgloss.NewStyle().Foreground(subtle).Padding(0, 1),
		Toast:   styles.ToastStyle,

		Title:     lipgloss.NewStyle().Bold(true).Foreground(highlight),
		Subtle:    lipgloss.NewStyle().Foreground(subtle),
		Highlight: lipgloss.NewStyle().Foreground(highlight),
	}
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	state   *State
	backend Backend
	keymap  KeyMap
	styles  Styles
	now     func() time.Time

	spinner components.Spinner
	prompt  TokenPrompt

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model. A nil backend yields a
// model that renders but never fetches.
func NewModel(b Backend) *Model {
	return &Model{
		activeTab: TabDashboard,
		tabNames:  []string{TabDashboard.String(), TabHistory.String(), TabInfo.String()},
		tabs:      make([]Tab, 3), // set by SetTabs
		state:     NewState(),
		backend:   b,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		now:       time.Now,
		spinner:   components.NewSpinner("Loading..."),
		prompt:    NewTokenPrompt(),
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state shared with the tabs.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// PromptActive reports whether the token prompt is open.
func (m *Model) PromptActive() bool {
	return m.prompt.Active()
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick(),
		defaultTickCmd(),
	}

	if m.backend != nil {
		m.state.SetLoadingNotification("Loading usage...")
		cmds = append(cmds, subscribeToServicesCmd(m.backend), loadStateCmd(m.backend))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The open prompt owns the keyboard
	if m.prompt.Active() {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, cmd
		}
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case StateLoadedMsg:
		m.state.SetUsage(msg.State)
		if !msg.State.Refreshing {
			m.state.ClearLoadingNotification()
		}
	case CommandResultMsg:
		cmds = append(cmds, m.handleCommandResult(msg))
	case TokenSubmittedMsg:
		if m.backend != nil {
			m.state.SetLoadingNotification("Saving token...")
			cmds = append(cmds, configureTokenCmd(m.backend, msg.Token))
		}
	case ReloadSettingsMsg:
		if m.backend != nil {
			m.state.SetLoadingNotification("Reloading settings...")
			cmds = append(cmds, reloadSettingsCmd(m.backend))
		}
	case TokenCancelledMsg:
		cmds = append(cmds, notifyInfoCmd("Token unchanged"))
	case OpenTokenPromptMsg:
		cmds = append(cmds, m.prompt.Open())
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.RefreshStartedEvent:
		m.state.SetRefreshing(true)
		m.state.SetLoadingNotification("Refreshing usage...")

	case services.StateEvent:
		m.state.SetUsage(e.State)
		if !e.State.Refreshing {
			m.state.ClearLoadingNotification()
		}

	case services.ErrorEvent:
		m.state.ClearLoadingNotification()
		if e.Interrupt && e.Action.Kind == notifier.ActionPromptToken {
			return m.prompt.Open()
		}

	case services.NotificationEvent:
		n := e.Notification
		msg := n.Message
		if len(n.Choices) > 0 {
			msg += " Press t to enter a token or 3 for settings."
		}
		if n.Level == notifier.LevelWarning {
			return notifyWarningCmd(msg)
		}
		return notifyInfoCmd(msg)
	}
	return nil
}

func (m *Model) handleCommandResult(msg CommandResultMsg) tea.Cmd {
	m.state.ClearLoadingNotification()

	switch msg.Command {
	case CommandRefresh:
		// Failures are already in the status line
		if msg.Err == nil {
			return notifySuccessCmd("Usage refreshed")
		}
		logger.Debug("manual refresh failed", "error", msg.Err)
	case CommandConfigureToken:
		if errors.Is(msg.Err, config.ErrTokenOverridden) {
			return notifyWarningCmd("Token saved, but " + config.EnvToken + " is still in effect")
		}
		if msg.Err != nil {
			return notifyErrorCmd(fmt.Sprintf("Failed to save token: %v", msg.Err))
		}
		return notifySuccessCmd("Token saved")
	case CommandClearToken:
		if errors.Is(msg.Err, config.ErrTokenOverridden) {
			return notifyWarningCmd("Manual token cleared, but " + config.EnvToken + " is still in effect")
		}
		if msg.Err != nil {
			return notifyErrorCmd(fmt.Sprintf("Failed to clear token: %v", msg.Err))
		}
		return notifySuccessCmd("Manual token cleared")
	case CommandReloadSettings:
		if msg.Err != nil {
			return notifyErrorCmd(fmt.Sprintf("Failed to reload settings: %v", msg.Err))
		}
		return notifySuccessCmd("Settings reloaded")
	}
	return nil
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-chromeHeight)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) switchTab(id TabID) {
	m.activeTab = id
	m.updateTabSizes()
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false

	case key.Matches(msg, m.keymap.Tab1), key.Matches(msg, m.keymap.Details):
		m.switchTab(TabDashboard)

	case key.Matches(msg, m.keymap.Tab2):
		m.switchTab(TabHistory)

	case key.Matches(msg, m.keymap.Tab3):
		m.switchTab(TabInfo)

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		}

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		}

	case key.Matches(msg, m.keymap.Refresh):
		if m.backend != nil {
			m.state.SetLoadingNotification("Refreshing usage...")
			return refreshCmd(m.backend)
		}

	case key.Matches(msg, m.keymap.Token):
		return m.prompt.Open()

	case key.Matches(msg, m.keymap.ClearToken):
		if m.backend != nil {
			return clearTokenCmd(m.backend)
		}
	}

	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(m.spinner.ViewWithLabel()))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := m.withFooter(b.String())

	switch {
	case m.prompt.Active():
		mainView = m.overlayCentered(mainView, m.prompt.View())
	case m.showHelp:
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); len(toasts) > 0 {
		return m.overlayToasts(mainView, toasts)
	}

	return mainView
}

// withFooter pins the status line and key hints to the last two rows.
func (m *Model) withFooter(content string) string {
	lines := strings.Split(content, "\n")
	bodyHeight := max(m.height-2, 0)
	if len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}

	status := components.RenderStatusLine(m.state.Usage(), m.now(), m.width)
	return strings.Join(append(lines, status, m.renderShortHelp()), "\n")
}

func (m *Model) renderShortHelp() string {
	bindings := m.keymap.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		parts = append(parts, styles.HelpKeyStyle.Render(kb.Help().Key)+" "+kb.Help().Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-lipgloss.Width(overlay))/2, 0)
	overlayWidth := lipgloss.Width(overlay)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(m.tabNames))
	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style, prefix = m.styles.NotificationSuccess, "[OK]"
		case NotificationError:
			style, prefix = m.styles.NotificationError, "[ERR]"
		case NotificationWarning:
			style, prefix = m.styles.NotificationWarning, "[WARN]"
		case NotificationInfo:
			style, prefix = m.styles.NotificationInfo, "[INFO]"
		case NotificationLoading:
			style, prefix = m.styles.NotificationInfo, m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	lines := []string{
		m.styles.Title.Render("Keyboard Shortcuts"),
		"",
		m.styles.Highlight.Render("Navigation"),
		"  1-3        Switch tabs",
		"  Tab        Next tab",
		"  Shift+Tab  Previous tab",
		"  d          Usage details",
		"",
		m.styles.Highlight.Render("Actions"),
		"  r          Refresh now",
		"  t          Configure token",
		"  x          Clear manual token",
		"  ?          Toggle help",
		"  q/Ctrl+C   Quit",
		"",
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.tabNames[m.activeTab],
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}
