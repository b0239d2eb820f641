package costguard

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RateLimitExceededError means the assessment was not granted. ResetAt is the
// next UTC midnight.
type RateLimitExceededError struct {
	UserID  uuid.UUID
	ResetAt time.Time
	Limit   int64
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("daily assessment limit (%d) reached for user %s; resets at %s",
		e.Limit, e.UserID, e.ResetAt.Format(time.RFC3339))
}
