package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/data/repos"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

const (
	DefaultMaxMessages     = 25
	DefaultAnalysisTimeout = 2 * time.Minute
	MaxMessageRunes        = 4000
)

type AssessmentConfig struct {
	// MaxMessages moves the session to finalizing once this many user messages were sent.
	MaxMessages     int
	AnalysisTimeout time.Duration
}

type SendMessageResult struct {
	SessionID       uuid.UUID                    `json:"session_id"`
	Reply           string                       `json:"reply"`
	MessageCount    int                          `json:"message_count"`
	Status          string                       `json:"status"`
	CostIncurredUSD float64                      `json:"cost_incurred_usd"`
	SteeringTarget  *orchestrator.SteeringTarget `json:"steering_target,omitempty"`
}

type AssessmentResults struct {
	SessionID   uuid.UUID        `json:"session_id"`
	Status      string           `json:"status"`
	Profile     *scoring.Profile `json:"profile"`
	Portrait    string           `json:"portrait"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type AssessmentService interface {
	StartAssessment(ctx context.Context, userID uuid.UUID) (*types.AssessmentSession, error)
	CanStartAssessment(ctx context.Context, userID uuid.UUID) (bool, error)
	SendMessage(ctx context.Context, userID, sessionID uuid.UUID, text string) (*SendMessageResult, error)
	EndConversation(ctx context.Context, userID, sessionID uuid.UUID) (*types.AssessmentSession, error)
	GenerateResults(ctx context.Context, userID, sessionID uuid.UUID) (*finalization.Result, error)
	GetResults(ctx context.Context, userID, sessionID uuid.UUID) (*AssessmentResults, error)
	// Wait blocks until background analyses started by SendMessage have finished.
	Wait()
}

type assessmentService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          AssessmentConfig
	sessions     repos.SessionRepo
	messages     repos.MessageRepo
	guard        costguard.Guard
	locker       locks.SessionLocker
	orchestrator orchestrator.Orchestrator
	finalizer    finalization.Machine
	metrics      *observability.Metrics

	background sync.WaitGroup
}

func NewAssessmentService(
	db *gorm.DB,
	log *logger.Logger,
	cfg AssessmentConfig,
	sessions repos.SessionRepo,
	messages repos.MessageRepo,
	guard costguard.Guard,
	locker locks.SessionLocker,
	orch orchestrator.Orchestrator,
	finalizer finalization.Machine,
	metrics *observability.Metrics,
) AssessmentService {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	return &assessmentService{
		db:           db,
		log:          log.With("service", "AssessmentService"),
		cfg:          cfg,
		sessions:     sessions,
		messages:     messages,
		guard:        guard,
		locker:       locker,
		orchestrator: orch,
		finalizer:    finalizer,
		metrics:      metrics,
	}
}

func (s *assessmentService) StartAssessment(ctx context.Context, userID uuid.UUID) (*types.AssessmentSession, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if err := s.guard.RecordAssessmentStart(ctx, userID); err != nil {
		var limited *costguard.RateLimitExceededError
		if errors.As(err, &limited) {
			s.metrics.IncRateLimited()
			s.log.Info("assessment start rate limited", "user_id", userID, "reset_at", limited.ResetAt)
		}
		return nil, err
	}
	owner := userID
	session := &types.AssessmentSession{UserID: &owner, Status: types.SessionStatusActive}
	if err := s.sessions.Create(dbctx.New(ctx), session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("assessment started", "user_id", userID, "session_id", session.ID)
	return session, nil
}

func (s *assessmentService) CanStartAssessment(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.guard.CanStartAssessment(ctx, userID)
}

func (s *assessmentService) loadVisible(ctx context.Context, userID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	session, err := s.sessions.GetByID(dbctx.New(ctx), sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || !session.VisibleTo(userID) {
		return nil, &finalization.SessionNotFoundError{SessionID: sessionID}
	}
	return session, nil
}

func (s *assessmentService) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, text string) (*SendMessageResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxMessageRunes)
	}

	session, err := s.loadVisible(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.SessionStatusActive {
		return nil, &SessionNotActiveError{SessionID: sessionID, CurrentStatus: session.Status}
	}

	history, err := s.messages.ListBySession(dbctx.New(ctx), sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	prior := make([]orchestrator.Message, 0, len(history))
	for _, m := range history {
		prior = append(prior, toOrchestratorMessage(m))
	}

	spentCents, err := s.guard.GetDailyCost(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read daily cost: %w", err)
	}

	userMsg := &types.AssessmentMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      types.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	count := session.MessageCount + 1

	out, err := s.orchestrator.ProcessMessage(ctx, orchestrator.ProcessMessageInput{
		SessionID:        sessionID,
		UserMessage:      toOrchestratorMessage(userMsg),
		PriorMessages:    prior,
		MessageCount:     count,
		DailyCostUsedUSD: costguard.CentsToUSD(spentCents),
	})
	if err != nil {
		return nil, err
	}

	// Cost is recorded before the write; the agent call is billed even if the
	// turn is not stored. A counter failure is logged rather than returned.
	if cents := costguard.USDToCents(out.CostIncurredUSD); cents > 0 {
		if _, err := s.guard.IncrementDailyCost(ctx, userID, cents); err != nil {
			s.log.Error("failed to record message cost", "user_id", userID, "session_id", sessionID, "cents", cents, "error", err)
		}
	}

	assistantMsg := &types.AssessmentMessage{
		ID:           uuid.New(),
		SessionID:    sessionID,
		Role:         types.RoleAssistant,
		Content:      out.AgentResponse,
		InputTokens:  out.TokenUsage.InputTokens,
		OutputTokens: out.TokenUsage.OutputTokens,
		CostUSD:      out.CostIncurredUSD,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		// The conditional increment runs first so the row stays locked against a
		// concurrent move to finalizing until the turn commits.
		n, err := s.sessions.IncrementMessageCount(dbc, sessionID, 1)
		if err != nil {
			return err
		}
		count = n
		if err := s.messages.Append(dbc, userMsg); err != nil {
			return err
		}
		return s.messages.Append(dbc, assistantMsg)
	})
	if errors.Is(err, repos.ErrSessionNotActive) {
		return nil, s.notActive(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	if s.orchestrator.ShouldAnalyze(count) {
		transcript := append(prior, toOrchestratorMessage(userMsg), toOrchestratorMessage(assistantMsg))
		s.analyzeInBackground(ctx, sessionID, transcript, count)
	}

	status := types.SessionStatusActive
	if count >= s.cfg.MaxMessages {
		if st, err := s.beginFinalizing(ctx, sessionID); err != nil {
			s.log.Warn("could not move session to finalizing", "session_id", sessionID, "error", err)
		} else {
			status = st
		}
	}

	return &SendMessageResult{
		SessionID:       sessionID,
		Reply:           out.AgentResponse,
		MessageCount:    count,
		Status:          status,
		CostIncurredUSD: out.CostIncurredUSD,
		SteeringTarget:  out.SteeringTarget,
	}, nil
}

// notActive reports the status a session left active for while a turn was in flight.
func (s *assessmentService) notActive(ctx context.Context, sessionID uuid.UUID) error {
	status := types.SessionStatusFinalizing
	if current, err := s.sessions.GetByID(dbctx.New(ctx), sessionID); err == nil && current != nil {
		status = current.Status
	}
	s.log.Info("turn dropped, session no longer active", "session_id", sessionID, "status", status)
	return &SessionNotActiveError{SessionID: sessionID, CurrentStatus: status}
}

// analyzeInBackground runs extraction detached from the request so the reply is not delayed.
func (s *assessmentService) analyzeInBackground(ctx context.Context, sessionID uuid.UUID, transcript []orchestrator.Message, count int) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AnalysisTimeout)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		err := s.orchestrator.ProcessAnalysis(actx, orchestrator.ProcessAnalysisInput{
			SessionID:    sessionID,
			Messages:     transcript,
			FromCount:    max(0, count-s.orchestrator.Config().AnalysisCadence),
			MessageCount: count,
		})
		if errors.Is(err, orchestrator.ErrSessionClosed) {
			s.log.Info("cadence analysis discarded, finalization covers it", "session_id", sessionID, "message_count", count)
			return
		}
		if err != nil {
			s.log.Error("evidence analysis failed", "session_id", sessionID, "message_count", count, "error", err)
		}
	}()
}

func (s *assessmentService) Wait() {
	s.background.Wait()
}

// beginFinalizing moves an active session to finalizing under the session lock
// and returns the resulting status. A contended lock means another caller is
// already transitioning the session.
func (s *assessmentService) beginFinalizing(ctx context.Context, sessionID uuid.UUID) (string, error) {
	status := ""
	err := locks.WithLock(ctx, s.locker, sessionID, func(ctx context.Context, _ *locks.Lease) error {
		current, err := s.sessions.GetByID(dbctx.New(ctx), sessionID)
		if err != nil {
			return err
		}
		if current == nil {
			return &finalization.SessionNotFoundError{SessionID: sessionID}
		}
		status = current.Status
		if current.Status != types.SessionStatusActive {
			return nil
		}
		if err := s.sessions.UpdateFields(dbctx.New(ctx), sessionID, map[string]interface{}{
			"status":                types.SessionStatusFinalizing,
			"finalization_progress": nil,
		}); err != nil {
			return err
		}
		status = types.SessionStatusFinalizing
		s.log.Info("session moved to finalizing", "session_id", sessionID)
		return nil
	})
	if errors.Is(err, locks.ErrContended) {
		return types.SessionStatusFinalizing, nil
	}
	return status, err
}

func (s *assessmentService) EndConversation(ctx context.Context, userID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	session, err := s.loadVisible(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sessionFinalizing(session.Status) {
		return session, nil
	}
	if _, err := s.beginFinalizing(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.loadVisible(ctx, userID, sessionID)
}

func (s *assessmentService) GenerateResults(ctx context.Context, userID, sessionID uuid.UUID) (*finalization.Result, error) {
	return s.finalizer.GenerateResults(ctx, sessionID, userID)
}

func (s *assessmentService) GetResults(ctx context.Context, userID, sessionID uuid.UUID) (*AssessmentResults, error) {
	session, err := s.loadVisible(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.SessionStatusCompleted {
		return nil, &ResultsNotReadyError{SessionID: sessionID, CurrentStatus: session.Status, Progress: session.Progress()}
	}
	profile, err := decodeProfile(session.ResultJSON)
	if err != nil {
		return nil, err
	}
	return &AssessmentResults{
		SessionID:   session.ID,
		Status:      session.Status,
		Profile:     profile,
		Portrait:    session.Portrait,
		CompletedAt: session.CompletedAt,
	}, nil
}

func toOrchestratorMessage(m *types.AssessmentMessage) orchestrator.Message {
	return orchestrator.Message{
		ID:        m.ID.String(),
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
