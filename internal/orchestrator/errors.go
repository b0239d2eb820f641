package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed means cadence evidence arrived after the session stopped
	// accepting it; finalization re-extracts that range instead.
	ErrSessionClosed = errors.New("session no longer accepts cadence evidence")
	// ErrBatchRecorded means the message range was already analyzed.
	ErrBatchRecorded = errors.New("analysis batch already recorded")
)

// BudgetPausedError is returned before any agent call when the projected
// daily spend reaches the limit.
type BudgetPausedError struct {
	SessionID         uuid.UUID
	ResumeAfter       time.Time
	CurrentConfidence float64
}

func (e *BudgetPausedError) Error() string {
	return fmt.Sprintf("session %s paused: daily budget reached, resume after %s", e.SessionID, e.ResumeAfter.Format(time.RFC3339))
}

// AgentError wraps a conversational agent failure.
type AgentError struct {
	SessionID uuid.UUID
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("conversation agent failed for session %s: %v", e.SessionID, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// ExtractorError wraps an evidence extractor failure.
type ExtractorError struct {
	SessionID uuid.UUID
	Err       error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("evidence extractor failed for session %s: %v", e.SessionID, e.Err)
}

func (e *ExtractorError) Unwrap() error { return e.Err }
