package finalization

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/scoring"
)

// SessionState is the slice of a session finalization reads.
type SessionState struct {
	ID          uuid.UUID
	OwnerUserID *uuid.UUID
	Status      string
	Progress    string
	// Profile is the stored analysis snapshot, nil before the analyzing phase completes.
	Profile *scoring.Profile
}

// VisibleTo reports whether userID may see the session; unowned sessions are visible to all.
func (s *SessionState) VisibleTo(userID uuid.UUID) bool {
	return s != nil && (s.OwnerUserID == nil || *s.OwnerUserID == userID)
}

// SessionUpdate lists the fields to write; nil fields are left untouched.
type SessionUpdate struct {
	Status      *string
	Progress    *string
	Profile     *scoring.Profile
	Portrait    *string
	CompletedAt *time.Time
}

type SessionStore interface {
	// Get returns (nil, nil) when the session does not exist.
	Get(ctx context.Context, sessionID uuid.UUID) (*SessionState, error)
	Update(ctx context.Context, sessionID uuid.UUID, upd SessionUpdate) error
}

// Analyzer recomputes the profile from the session's stored evidence.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID uuid.UUID) (*scoring.Profile, error)
}

// PortraitWriter produces the narrative portrait for a finished profile.
type PortraitWriter interface {
	Write(ctx context.Context, sessionID uuid.UUID, profile *scoring.Profile) (string, error)
}
