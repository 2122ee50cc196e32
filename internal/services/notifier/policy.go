package notifier

import (
	"github.com/j-veylop/claude-meter-tui/internal/models"
)

// ActionKind is how an error is surfaced.
type ActionKind int

const (
	// ActionPassive leaves the error to the status display.
	ActionPassive ActionKind = iota
	// ActionPromptToken asks the user to supply a token.
	ActionPromptToken
	// ActionInform shows an informational message.
	ActionInform
)

// Choices offered with ActionPromptToken.
const (
	ChoiceEnterToken   = "Enter Token"
	ChoiceOpenSettings = "Open Settings"
)

const retryTimeLayout = "15:04:05"

// Action is the reaction chosen for an error.
type Action struct {
	Message string
	Choices []string
	Kind    ActionKind
}

// Notification converts the action to a deliverable notification.
func (a Action) Notification() Notification {
	level := LevelInfo
	if a.Kind == ActionPromptToken {
		level = LevelWarning
	}
	return Notification{
		Level:   level,
		Title:   "Claude Meter",
		Message: a.Message,
		Choices: a.Choices,
	}
}

// ReactToError maps an error to the reaction it deserves. Only a missing
// token and rate limiting interrupt the user; every other kind is transient
// or already visible in the status line.
func ReactToError(err *models.UsageError) Action {
	if err == nil {
		return Action{Kind: ActionPassive}
	}

	switch err.Kind {
	case models.ErrNoToken:
		return Action{
			Kind:    ActionPromptToken,
			Message: "No authentication token found.",
			Choices: []string{ChoiceEnterToken, ChoiceOpenSettings},
		}
	case models.ErrRateLimited:
		msg := "Rate limited by Anthropic API."
		if err.RetryAfter != nil {
			msg += " Retry after " + err.RetryAfter.Local().Format(retryTimeLayout) + "."
		}
		return Action{Kind: ActionInform, Message: msg}
	default:
		return Action{Kind: ActionPassive, Message: err.Message}
	}
}
