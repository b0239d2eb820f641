package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidInput marks request payloads the service refuses to process.
var ErrInvalidInput = errors.New("invalid input")

// SessionNotActiveError is returned when a message targets a session whose conversation has ended.
type SessionNotActiveError struct {
	SessionID     uuid.UUID
	CurrentStatus string
}

func (e *SessionNotActiveError) Error() string {
	return fmt.Sprintf("session %s is %s, not active", e.SessionID, e.CurrentStatus)
}

// ResultsNotReadyError is returned when results are read before finalization completed.
type ResultsNotReadyError struct {
	SessionID     uuid.UUID
	CurrentStatus string
	Progress      string
}

func (e *ResultsNotReadyError) Error() string {
	return fmt.Sprintf("results for session %s not ready (status=%s)", e.SessionID, e.CurrentStatus)
}
