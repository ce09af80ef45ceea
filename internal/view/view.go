// Package view decides what the user sees for a given session state. It holds no state of its own beyond AutoScroll.
package view

import "github.com/cchalm/smart-coach/internal/session"

// Kind is one of the renderable screens
type Kind int

const (
	KindOnboarding Kind = iota
	KindConfigurationError
	KindActiveChat
)

func (k Kind) String() string {
	switch k {
	case KindOnboarding:
		return "onboarding"
	case KindConfigurationError:
		return "configuration-error"
	case KindActiveChat:
		return "active-chat"
	default:
		return "unknown"
	}
}

// Screen is everything a renderer needs to draw the current state
type Screen struct {
	Kind Kind

	// FirstName is set once the user is registered
	FirstName string

	// ConfigurationError explains why the chat is unavailable. Set for KindConfigurationError
	ConfigurationError string

	// The remaining fields are set for KindActiveChat
	Messages []session.Message
	// Thinking is true while the coach's reply is pending
	Thinking bool
	// InputEnabled is false while a turn is in flight
	InputEnabled bool
	// ErrorBanner is the last turn error, shown below the conversation
	ErrorBanner string
}

// Render maps a snapshot to a screen. A missing credential wins over everything else: without it the chat is never
// reachable, registered or not
func Render(snap session.Snapshot) Screen {
	var screen Screen
	if snap.Registration != nil {
		screen.FirstName = snap.Registration.FirstName
	}

	switch {
	case !snap.CredentialAvailable:
		screen.Kind = KindConfigurationError
		screen.ConfigurationError = snap.LastError
	case !snap.Registered:
		screen.Kind = KindOnboarding
	default:
		screen.Kind = KindActiveChat
		screen.Messages = snap.Messages
		screen.Thinking = snap.AwaitingResponse
		screen.InputEnabled = !snap.AwaitingResponse
		if !snap.AwaitingResponse {
			screen.ErrorBanner = snap.LastError
		}
	}
	return screen
}

// AutoScroll decides when the chat should follow the newest message
type AutoScroll struct {
	seen int
}

// Observe records a rendered screen and reports whether the message list grew while the chat was visible
func (as *AutoScroll) Observe(screen Screen) bool {
	if screen.Kind != KindActiveChat {
		as.seen = 0
		return false
	}
	grew := len(screen.Messages) > as.seen
	as.seen = len(screen.Messages)
	return grew
}
