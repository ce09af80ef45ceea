// Package ai provides the gateway to the remote generative-AI service that plays the coach, along with the coach
// persona itself.
package ai

import (
	"context"
	"errors"
)

// Gateway opens conversational sessions with a remote model
type Gateway interface {
	// InitializeSession establishes the capability to converse using the given credential. It must be called once per
	// credential before the first turn. Failures are reported as *InitializationError
	InitializeSession(ctx context.Context, credential string) (Session, error)
}

// Session is an established conversational context with the remote model
type Session interface {
	// SendTurn exchanges one user turn for one model reply. Failures are reported as *TransportError
	SendTurn(ctx context.Context, text string) (string, error)
}

// InitializationError reports that a session could not be established, e.g. due to a bad credential
type InitializationError struct {
	Err error
}

func (ie *InitializationError) Error() string {
	return ie.Err.Error()
}

func (ie *InitializationError) Unwrap() error {
	return ie.Err
}

// TransportError reports a failed turn. Its message is a human-readable diagnostic suitable for showing to the user
type TransportError struct {
	Err error
}

func (te *TransportError) Error() string {
	return te.Err.Error()
}

func (te *TransportError) Unwrap() error {
	return te.Err
}

// NewTransportError creates a TransportError with the given diagnostic
func NewTransportError(msg string) *TransportError {
	return &TransportError{Err: errors.New(msg)}
}
