package finalization

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionNotFoundError covers both a missing session and one owned by someone else.
type SessionNotFoundError struct {
	SessionID uuid.UUID
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

type SessionNotFinalizingError struct {
	SessionID     uuid.UUID
	CurrentStatus string
}

func (e *SessionNotFinalizingError) Error() string {
	return fmt.Sprintf("session %s is %s, not finalizing", e.SessionID, e.CurrentStatus)
}
