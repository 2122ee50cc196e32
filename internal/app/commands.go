package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/config"
	"github.com/j-veylop/claude-meter-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// Backend is the part of the service manager the UI drives.
// *services.Manager implements it.
type Backend interface {
	State() services.State
	Config() *config.Config
	Refresh(ctx context.Context) error
	ConfigureToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	ReloadSettings(ctx context.Context) error
	Subscribe() (chan services.ServiceEvent, tea.Cmd)
}

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadStateCmd reads the manager state once, for the first paint.
func loadStateCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return StateLoadedMsg{State: b.State()}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(b Backend) tea.Cmd {
	ch, _ := b.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// refreshCmd runs one refresh cycle.
func refreshCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Command: CommandRefresh, Err: b.Refresh(context.Background())}
	}
}

// configureTokenCmd saves a manual token and refreshes with it.
func configureTokenCmd(b Backend, token string) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Command: CommandConfigureToken, Err: b.ConfigureToken(context.Background(), token)}
	}
}

// clearTokenCmd removes the manual token.
func clearTokenCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Command: CommandClearToken, Err: b.ClearToken(context.Background())}
	}
}

// reloadSettingsCmd re-reads the settings file.
func reloadSettingsCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Command: CommandReloadSettings, Err: b.ReloadSettings(context.Background())}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, QuickNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, LongNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, DefaultNotificationDuration)
}
