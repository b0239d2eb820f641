// Package orchestrator runs one conversational turn: it gates on the daily
// budget, decides whether to steer toward an under-evidenced facet, and
// delegates to the conversation agent. Evidence extraction runs separately
// on a message cadence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/clock"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type ProcessMessageInput struct {
	SessionID        uuid.UUID
	UserMessage      Message
	PriorMessages    []Message
	MessageCount     int
	DailyCostUsedUSD float64
}

type ProcessMessageOutput struct {
	AgentResponse   string
	TokenUsage      TokenUsage
	CostIncurredUSD float64
	SteeringTarget  *SteeringTarget
	SteeringHint    *string
}

// ProcessAnalysisInput covers user messages (FromCount, MessageCount].
// Messages holds their transcript, possibly with earlier context.
type ProcessAnalysisInput struct {
	SessionID    uuid.UUID
	Messages     []Message
	FromCount    int
	MessageCount int
	// Final is set by finalization when it extracts ranges the cadence missed.
	Final bool
}

type Orchestrator interface {
	ProcessMessage(ctx context.Context, in ProcessMessageInput) (*ProcessMessageOutput, error)
	ProcessAnalysis(ctx context.Context, in ProcessAnalysisInput) error
	ShouldAnalyze(messageCount int) bool
	Config() Config
}

type orchestrator struct {
	log       *logger.Logger
	cfg       Config
	agent     ConversationAgent
	extractor EvidenceExtractor
	store     EvidenceStore
	metrics   *observability.Metrics
	now       clock.Func
}

func New(
	baseLog *logger.Logger,
	cfg Config,
	agent ConversationAgent,
	extractor EvidenceExtractor,
	store EvidenceStore,
	metrics *observability.Metrics,
	now clock.Func,
) Orchestrator {
	return &orchestrator{
		log:       baseLog.With("service", "Orchestrator"),
		cfg:       cfg.withDefaults(),
		agent:     agent,
		extractor: extractor,
		store:     store,
		metrics:   metrics,
		now:       clock.NowOr(now),
	}
}

func (o *orchestrator) Config() Config { return o.cfg }

func (o *orchestrator) ShouldAnalyze(messageCount int) bool {
	return messageCount > 0 && messageCount%o.cfg.AnalysisCadence == 0
}

func (o *orchestrator) ProcessMessage(ctx context.Context, in ProcessMessageInput) (out *ProcessMessageOutput, err error) {
	if in.SessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "orchestrator.ProcessMessage", trace.WithAttributes(
		attribute.String("session.id", in.SessionID.String()),
		attribute.Int("message.count", in.MessageCount),
	))
	defer func() {
		o.metrics.ObserveOrchestrator("process_message", statusOf(err), time.Since(start))
		endSpan(span, err)
	}()

	projected := in.DailyCostUsedUSD + o.cfg.MessageCostEstimateUSD
	if projected >= o.cfg.DailyCostLimitUSD {
		paused := &BudgetPausedError{
			SessionID:         in.SessionID,
			ResumeAfter:       clock.NextUTCMidnight(o.now()),
			CurrentConfidence: o.currentConfidence(ctx, in.SessionID),
		}
		o.metrics.IncBudgetPaused()
		o.log.Info("budget gate paused session",
			"session_id", in.SessionID,
			"projected_usd", projected,
			"limit_usd", o.cfg.DailyCostLimitUSD,
		)
		return nil, paused
	}

	var target *SteeringTarget
	if in.MessageCount > 1 {
		scores, err := o.facetScores(ctx, in.SessionID)
		if err != nil {
			return nil, err
		}
		target = pickSteering(scores)
	}
	o.metrics.IncSteering(target != nil)
	hint := steeringHint(target)

	transcript := make([]Message, 0, len(in.PriorMessages)+1)
	transcript = append(transcript, in.PriorMessages...)
	transcript = append(transcript, in.UserMessage)

	reply, err := o.agent.Invoke(ctx, AgentRequest{
		SessionID:    in.SessionID,
		Messages:     transcript,
		Steering:     target,
		SteeringHint: hint,
	})
	if err != nil {
		return nil, &AgentError{SessionID: in.SessionID, Err: err}
	}

	cost := o.cfg.CostOf(reply.Usage)
	o.metrics.AddCost("conversation_agent", cost)
	return &ProcessMessageOutput{
		AgentResponse:   reply.Text,
		TokenUsage:      reply.Usage,
		CostIncurredUSD: cost,
		SteeringTarget:  target,
		SteeringHint:    hint,
	}, nil
}

func (o *orchestrator) ProcessAnalysis(ctx context.Context, in ProcessAnalysisInput) (err error) {
	if in.SessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "orchestrator.ProcessAnalysis", trace.WithAttributes(
		attribute.String("session.id", in.SessionID.String()),
		attribute.Int("message.count", in.MessageCount),
	))
	defer func() {
		o.metrics.ObserveOrchestrator("process_analysis", statusOf(err), time.Since(start))
		endSpan(span, err)
	}()

	batch := in.Messages
	if len(batch) > o.cfg.AnalysisWindow {
		batch = batch[len(batch)-o.cfg.AnalysisWindow:]
	}
	if len(batch) == 0 {
		return nil
	}

	if in.FromCount < 0 || in.FromCount >= in.MessageCount {
		return fmt.Errorf("invalid analysis range (%d, %d]", in.FromCount, in.MessageCount)
	}

	evidence, err := o.extractor.Analyze(ctx, in.SessionID, batch)
	if err != nil {
		return &ExtractorError{SessionID: in.SessionID, Err: err}
	}
	if err := scoring.ValidateAll(evidence); err != nil {
		return err
	}
	now := o.now().UTC()
	for i := range evidence {
		if evidence[i].CreatedAt.IsZero() {
			evidence[i].CreatedAt = now
		}
	}
	err = o.store.AppendBatch(ctx, EvidenceBatch{
		SessionID:    in.SessionID,
		FromCount:    in.FromCount,
		ThroughCount: in.MessageCount,
		Final:        in.Final,
		Evidence:     evidence,
	})
	if errors.Is(err, ErrBatchRecorded) {
		o.log.Debug("analysis batch already recorded", "session_id", in.SessionID, "through", in.MessageCount)
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist evidence: %w", err)
	}
	o.metrics.AddEvidencePersisted(len(evidence))
	o.log.Debug("evidence persisted",
		"session_id", in.SessionID,
		"from", in.FromCount,
		"through", in.MessageCount,
		"count", len(evidence),
		"final", in.Final,
	)
	return nil
}

func (o *orchestrator) facetScores(ctx context.Context, sessionID uuid.UUID) (map[scoring.Facet]scoring.FacetScore, error) {
	evidence, err := o.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	return scoring.AggregateFacetScores(evidence)
}

// currentConfidence is best effort: a pause is still reported when the
// evidence cannot be read.
func (o *orchestrator) currentConfidence(ctx context.Context, sessionID uuid.UUID) float64 {
	scores, err := o.facetScores(ctx, sessionID)
	if err != nil {
		o.log.Warn("confidence unavailable for paused session", "session_id", sessionID, "error", err)
		return 0
	}
	return scoring.MeanConfidence(scores)
}

func statusOf(err error) string {
	var paused *BudgetPausedError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &paused):
		return "budget_paused"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	var paused *BudgetPausedError
	if err != nil && !errors.As(err, &paused) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
