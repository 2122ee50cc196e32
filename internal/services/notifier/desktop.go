package notifier

import (
	"github.com/gen2brain/beeep"
)

// DesktopSender shows notifications through the OS notification service.
// Warnings also play the alert sound.
type DesktopSender struct{}

// Send implements Sender.
func (DesktopSender) Send(n Notification) error {
	if n.Level == LevelWarning {
		return beeep.Alert(n.Title, n.Message, "")
	}
	return beeep.Notify(n.Title, n.Message, "")
}
