package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/scoring"
)

// Message is one transcript turn as seen by the agent and the extractor.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SteeringTarget names the facet the next turn should lean toward.
type SteeringTarget struct {
	Domain scoring.Trait `json:"domain"`
	Facet  scoring.Facet `json:"facet"`
}

type AgentRequest struct {
	SessionID    uuid.UUID
	Messages     []Message
	Steering     *SteeringTarget
	SteeringHint *string
}

type AgentReply struct {
	Text  string
	Usage TokenUsage
}

// ConversationAgent produces the assistant's next turn.
type ConversationAgent interface {
	Invoke(ctx context.Context, req AgentRequest) (AgentReply, error)
}

// EvidenceExtractor turns a message batch into facet evidence.
type EvidenceExtractor interface {
	Analyze(ctx context.Context, sessionID uuid.UUID, batch []Message) ([]scoring.Evidence, error)
}

// EvidenceBatch is the outcome of one extraction over user messages
// (FromCount, ThroughCount]. It is stored even when Evidence is empty.
type EvidenceBatch struct {
	SessionID    uuid.UUID
	FromCount    int
	ThroughCount int
	// Final batches come from finalization and may land after the session left active.
	Final    bool
	Evidence []scoring.Evidence
}

// EvidenceStore is the append-only evidence history of a session.
type EvidenceStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]scoring.Evidence, error)
	// AppendBatch persists a batch atomically. It returns ErrSessionClosed for
	// a non-final batch once the session is no longer active, and
	// ErrBatchRecorded when the range was stored before.
	AppendBatch(ctx context.Context, batch EvidenceBatch) error
}
