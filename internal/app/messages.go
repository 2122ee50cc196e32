package app

import (
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/services"
)

// TickMsg is sent periodically to age toasts and the status line.
type TickMsg struct {
	Time time.Time
}

// SubscriptionEventMsg carries the channel returned by Manager.Subscribe.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// StateLoadedMsg carries a state copy read directly from the manager.
type StateLoadedMsg struct {
	State services.State
}

// CommandResultMsg reports the outcome of a user command.
type CommandResultMsg struct {
	Err     error
	Command string
}

// Command names reported in CommandResultMsg.
const (
	CommandRefresh        = "refresh"
	CommandConfigureToken = "configure-token"
	CommandClearToken     = "clear-token"
	CommandReloadSettings = "reload-settings"
)

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ReloadSettingsMsg asks the backend to re-read the settings file.
type ReloadSettingsMsg struct{}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// OpenTokenPromptMsg opens the masked token input.
type OpenTokenPromptMsg struct{}
