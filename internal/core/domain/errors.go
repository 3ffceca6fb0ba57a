package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionTerminated is returned when recovery ended the session.
	// Callers redirect to login; it is never a raw authentication error.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrRefreshFailed marks any failed credential refresh.
	ErrRefreshFailed = errors.New("credential refresh failed")

	// ErrNoRefreshToken is returned when the store has no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrTokenNotFound is returned by credential stores holding no token.
	ErrTokenNotFound = errors.New("token not found")

	// ErrEmptyToken is returned when the refresh endpoint answers without a token.
	ErrEmptyToken = errors.New("refresh endpoint returned no access token")
)

// OperationError carries every failure signal reported for one operation.
type OperationError struct {
	Operation string
	Signals   []FailureSignal

	// Data holds partial response data when the server returned any.
	Data any
}

func (e *OperationError) Error() string {
	if len(e.Signals) == 0 {
		return fmt.Sprintf("operation %s failed", e.Operation)
	}
	msgs := make([]string, 0, len(e.Signals))
	for _, s := range e.Signals {
		switch {
		case s.Message != "":
			msgs = append(msgs, s.Message)
		case s.TransportStatus != 0:
			msgs = append(msgs, fmt.Sprintf("status %d", s.TransportStatus))
		default:
			msgs = append(msgs, s.Code())
		}
	}
	return fmt.Sprintf("operation %s failed: %s", e.Operation, strings.Join(msgs, "; "))
}

// ConnectivityError wraps timeouts, DNS failures and refused connections.
type ConnectivityError struct {
	Operation string
	Err       error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("operation %s: connectivity: %v", e.Operation, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// SurfacedError is handed to the caller for permission, server and unclassified failures.
type SurfacedError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *SurfacedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *SurfacedError) Unwrap() error {
	return e.Err
}
