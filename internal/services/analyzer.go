package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/data/repos"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type profileAnalyzer struct {
	log          *logger.Logger
	sessions     repos.SessionRepo
	messages     repos.MessageRepo
	batches      repos.EvidenceRepo
	orchestrator orchestrator.Orchestrator
	evidence     orchestrator.EvidenceStore
	catalog      scoring.ArchetypeResolver
}

// NewProfileAnalyzer builds the finalization profile. Before scoring it
// extracts every user message range no committed analysis batch covers: the
// tail after the last cadence tick, and cadence runs that failed or were
// still in flight when the session left active.
func NewProfileAnalyzer(
	baseLog *logger.Logger,
	sessions repos.SessionRepo,
	messages repos.MessageRepo,
	batches repos.EvidenceRepo,
	orch orchestrator.Orchestrator,
	evidence orchestrator.EvidenceStore,
	catalog scoring.ArchetypeResolver,
) finalization.Analyzer {
	return &profileAnalyzer{
		log:          baseLog.With("service", "ProfileAnalyzer"),
		sessions:     sessions,
		messages:     messages,
		batches:      batches,
		orchestrator: orch,
		evidence:     evidence,
		catalog:      catalog,
	}
}

func (a *profileAnalyzer) Analyze(ctx context.Context, sessionID uuid.UUID) (*scoring.Profile, error) {
	if err := a.extractUncovered(ctx, sessionID); err != nil {
		return nil, err
	}
	evidence, err := a.evidence.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return scoring.BuildProfile(evidence, a.catalog)
}

func (a *profileAnalyzer) extractUncovered(ctx context.Context, sessionID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	session, err := a.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return &finalization.SessionNotFoundError{SessionID: sessionID}
	}
	batches, err := a.batches.ListBatches(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("load analysis batches: %w", err)
	}
	gaps := uncoveredRanges(session.MessageCount, a.orchestrator.Config().AnalysisCadence, batches)
	if len(gaps) == 0 {
		return nil
	}
	history, err := a.messages.ListBySession(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	for _, g := range gaps {
		msgs := transcriptRange(history, g.from, g.through)
		if len(msgs) == 0 {
			continue
		}
		if err := a.orchestrator.ProcessAnalysis(ctx, orchestrator.ProcessAnalysisInput{
			SessionID:    sessionID,
			Messages:     msgs,
			FromCount:    g.from,
			MessageCount: g.through,
			Final:        true,
		}); err != nil {
			return fmt.Errorf("extract messages (%d, %d]: %w", g.from, g.through, err)
		}
		a.log.Info("extracted unanalyzed messages", "session_id", sessionID, "from", g.from, "through", g.through)
	}
	return nil
}

// countRange is the user message range (from, through].
type countRange struct {
	from, through int
}

// uncoveredRanges lists the user message ranges in (0, total] that no batch
// covers, split into chunks of at most cadence messages.
func uncoveredRanges(total, cadence int, batches []*types.AnalysisBatch) []countRange {
	if total <= 0 {
		return nil
	}
	if cadence <= 0 {
		cadence = 1
	}
	covered := make([]bool, total+1)
	for _, b := range batches {
		for i := b.FromCount + 1; i <= b.ThroughCount && i <= total; i++ {
			covered[i] = true
		}
	}
	var out []countRange
	for i := 1; i <= total; i++ {
		if covered[i] {
			continue
		}
		if n := len(out); n > 0 && out[n-1].through == i-1 && out[n-1].through-out[n-1].from < cadence {
			out[n-1].through = i
			continue
		}
		out = append(out, countRange{from: i - 1, through: i})
	}
	return out
}

// transcriptRange returns the turns from the user message after from up to
// the reply to user message through. Messages must be in seq order.
func transcriptRange(history []*types.AssessmentMessage, from, through int) []orchestrator.Message {
	var (
		out  []orchestrator.Message
		user int
	)
	for _, m := range history {
		if m.Role == types.RoleUser {
			user++
		}
		if user <= from {
			continue
		}
		if user > through {
			break
		}
		out = append(out, toOrchestratorMessage(m))
	}
	return out
}
