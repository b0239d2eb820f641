// Package finalization drives a finalizing session through its result phases
// under the session lock. Phases persist progress before they run, so an
// interrupted run resumes from the last phase durably entered.
package finalization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/clock"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type Result struct {
	Status string `json:"status"`
}

type Machine interface {
	GenerateResults(ctx context.Context, sessionID, userID uuid.UUID) (*Result, error)
}

type machine struct {
	log      *logger.Logger
	store    SessionStore
	locker   locks.SessionLocker
	analyzer Analyzer
	portrait PortraitWriter
	metrics  *observability.Metrics
	now      clock.Func
}

func New(
	baseLog *logger.Logger,
	store SessionStore,
	locker locks.SessionLocker,
	analyzer Analyzer,
	portrait PortraitWriter,
	metrics *observability.Metrics,
	now clock.Func,
) Machine {
	return &machine{
		log:      baseLog.With("service", "FinalizationMachine"),
		store:    store,
		locker:   locker,
		analyzer: analyzer,
		portrait: portrait,
		metrics:  metrics,
		now:      clock.NowOr(now),
	}
}

func (m *machine) GenerateResults(ctx context.Context, sessionID, userID uuid.UUID) (res *Result, err error) {
	ctx, span := observability.Tracer().Start(ctx, "finalization.GenerateResults", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer func() {
		if err != nil {
			var nf *SessionNotFoundError
			var nfin *SessionNotFinalizingError
			switch {
			case errors.As(err, &nf):
				m.metrics.IncFinalization("not_found")
			case errors.As(err, &nfin):
				m.metrics.IncFinalization("not_finalizing")
			default:
				m.metrics.IncFinalization("error")
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
	}()

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.VisibleTo(userID) {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	if session.Status == types.SessionStatusCompleted {
		m.metrics.IncFinalization("already_completed")
		return &Result{Status: types.SessionStatusCompleted}, nil
	}
	if session.Status != types.SessionStatusFinalizing {
		return nil, &SessionNotFinalizingError{SessionID: sessionID, CurrentStatus: session.Status}
	}

	err = locks.WithLock(ctx, m.locker, sessionID, func(ctx context.Context, _ *locks.Lease) error {
		return m.run(ctx, sessionID)
	})
	if errors.Is(err, locks.ErrContended) {
		m.metrics.IncFinalization("in_progress")
		status := m.inFlightProgress(ctx, sessionID, session)
		m.log.Debug("finalization already running", "session_id", sessionID, "progress", status)
		return &Result{Status: status}, nil
	}
	if err != nil {
		return nil, err
	}
	m.metrics.IncFinalization("completed")
	return &Result{Status: types.SessionStatusCompleted}, nil
}

// run executes the remaining phases. Must be called with the session lock held.
func (m *machine) run(ctx context.Context, sessionID uuid.UUID) error {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	if session == nil {
		return &SessionNotFoundError{SessionID: sessionID}
	}
	if session.Status == types.SessionStatusCompleted {
		return nil
	}
	if session.Status != types.SessionStatusFinalizing {
		return &SessionNotFinalizingError{SessionID: sessionID, CurrentStatus: session.Status}
	}

	profile := session.Profile
	if session.Progress != types.ProgressGeneratingPortrait || profile == nil {
		profile, err = m.analyzePhase(ctx, sessionID)
		if err != nil {
			return err
		}
	}
	return m.portraitPhase(ctx, sessionID, profile)
}

func (m *machine) analyzePhase(ctx context.Context, sessionID uuid.UUID) (*scoring.Profile, error) {
	analyzing := types.ProgressAnalyzing
	if err := m.store.Update(ctx, sessionID, SessionUpdate{Progress: &analyzing}); err != nil {
		return nil, fmt.Errorf("enter analyzing: %w", err)
	}
	profile, err := m.analyzer.Analyze(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("analyze session: %w", err)
	}
	next := types.ProgressGeneratingPortrait
	if err := m.store.Update(ctx, sessionID, SessionUpdate{Progress: &next, Profile: profile}); err != nil {
		return nil, fmt.Errorf("enter generating_portrait: %w", err)
	}
	m.log.Info("session analyzed",
		"session_id", sessionID,
		"ocean_code", profile.OceanCode,
		"archetype", profile.Archetype.Name,
		"density", profile.Density,
	)
	return profile, nil
}

func (m *machine) portraitPhase(ctx context.Context, sessionID uuid.UUID, profile *scoring.Profile) error {
	portrait, err := m.portrait.Write(ctx, sessionID, profile)
	if err != nil {
		return fmt.Errorf("write portrait: %w", err)
	}
	completed := types.SessionStatusCompleted
	progress := types.ProgressCompleted
	at := m.now().UTC()
	if err := m.store.Update(ctx, sessionID, SessionUpdate{
		Status:      &completed,
		Progress:    &progress,
		Portrait:    &portrait,
		CompletedAt: &at,
	}); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	m.log.Info("session finalized", "session_id", sessionID)
	return nil
}

// inFlightProgress re-reads the progress written by the lock holder, falling
// back to the first read when the store is unavailable.
func (m *machine) inFlightProgress(ctx context.Context, sessionID uuid.UUID, first *SessionState) string {
	progress := first.Progress
	if fresh, err := m.store.Get(ctx, sessionID); err == nil && fresh != nil {
		if fresh.Status == types.SessionStatusCompleted {
			return types.SessionStatusCompleted
		}
		progress = fresh.Progress
	}
	if progress == "" {
		return types.ProgressAnalyzing
	}
	return progress
}
