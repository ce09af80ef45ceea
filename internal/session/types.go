// Package session implements the lifecycle of a coaching conversation: registration, session initialization with
// the AI gateway, and the serialized exchange of turns.
package session

import (
	"errors"
	"time"

	"github.com/cchalm/smart-coach/internal/registration"
)

var (
	// ErrNoCredential is returned when a message is submitted without a usable API key
	ErrNoCredential = errors.New("cannot send a message: no valid API key is available")
	// ErrNotRegistered is returned when a message is submitted before registration
	ErrNotRegistered = errors.New("please register before sending a message")
	// ErrNotStarted is returned when a message is submitted before the session was started
	ErrNotStarted = errors.New("the conversation has not been started")
	// ErrSessionReset is reported by a turn whose session was logged out while the turn was in flight
	ErrSessionReset = errors.New("the conversation was reset before the coach replied")
)

// missingCredentialText is recorded as the last error when no credential is configured
const missingCredentialText = "no API key is configured for the AI coach service"

// apologyFormat is the text of the AI message synthesized for a failed turn
const apologyFormat = "Sorry, something went wrong while reaching your coach. %s"

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is a single entry in the conversation. Messages are never modified once created
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

// Phase is the state of the conversation state machine
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseRegisteredNoCredential
	PhaseReady
	PhaseSending
	PhaseReadyWithError
	// PhaseConfigurationError means the gateway session could not be initialized. It lasts for the rest of the run
	PhaseConfigurationError
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseRegisteredNoCredential:
		return "registered-no-credential"
	case PhaseReady:
		return "ready"
	case PhaseSending:
		return "sending"
	case PhaseReadyWithError:
		return "ready-with-error"
	case PhaseConfigurationError:
		return "configuration-error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the session state at one point in time
type Snapshot struct {
	Registration        *registration.Record // nil if not registered
	Registered          bool
	CredentialAvailable bool
	AwaitingResponse    bool
	LastError           string // empty if there is no error
	Messages            []Message
	Phase               Phase
}
