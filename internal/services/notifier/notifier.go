// Package notifier decides when usage and errors deserve an interruptive
// notification, and delivers them.
package notifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

// Notification is one message for the user. Choices, when present, are the
// actions offered alongside it.
type Notification struct {
	Title   string
	Message string
	Choices []string
	Level   Level
}

// Sender delivers notifications.
type Sender interface {
	Send(n Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(n Notification) error

// Send calls f.
func (f SenderFunc) Send(n Notification) error { return f(n) }

// Multi returns a Sender delivering to every non-nil sender. All are tried;
// the joined error is returned.
func Multi(senders ...Sender) Sender {
	return SenderFunc(func(n Notification) error {
		var errs []error
		for _, s := range senders {
			if s == nil {
				continue
			}
			if err := s.Send(n); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Notifier tracks which windows have already been reported above threshold.
// Each crossing notifies once; dropping below re-arms the window.
type Notifier struct {
	sender Sender
	fired  map[string]struct{}
	mu     sync.Mutex
}

// New creates a notifier delivering through sender.
func New(sender Sender) *Notifier {
	return &Notifier{
		sender: sender,
		fired:  make(map[string]struct{}),
	}
}

// NotifyIfCrossed notifies when fraction reaches threshold for a window not
// already notified. It reports whether a notification was sent.
func (n *Notifier) NotifyIfCrossed(windowKey, label string, fraction, threshold float64) bool {
	n.mu.Lock()
	if fraction < threshold {
		delete(n.fired, windowKey)
		n.mu.Unlock()
		return false
	}
	if _, done := n.fired[windowKey]; done {
		n.mu.Unlock()
		return false
	}
	n.fired[windowKey] = struct{}{}
	n.mu.Unlock()

	n.send(Notification{
		Level: LevelWarning,
		Title: "Claude Meter",
		Message: fmt.Sprintf("%s utilization is at %d%% (threshold: %d%%).",
			label, models.RoundPercent(fraction*100), models.RoundPercent(threshold*100)),
	})
	return true
}

// Armed reports whether windowKey has fired and not yet re-armed.
func (n *Notifier) Armed(windowKey string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.fired[windowKey]
	return ok
}

// HandleError applies ReactToError and delivers the notification, if any.
func (n *Notifier) HandleError(err *models.UsageError) Action {
	action := ReactToError(err)
	if action.Kind != ActionPassive {
		n.send(action.Notification())
	}
	return action
}

func (n *Notifier) send(note Notification) {
	if n.sender == nil {
		return
	}
	if err := n.sender.Send(note); err != nil {
		logger.Warn("failed to deliver notification", "title", note.Title, "error", err)
	}
}
