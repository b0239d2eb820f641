package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/data/repos"
	"github.com/yungbote/bigocean-backend/internal/data/repos/testutil"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type scriptedAgent struct {
	mu    sync.Mutex
	calls int
	// onInvoke runs inside the agent call, between the status check and the write.
	onInvoke func()
}

func (a *scriptedAgent) Invoke(_ context.Context, req orchestrator.AgentRequest) (orchestrator.AgentReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.onInvoke != nil {
		a.onInvoke()
	}
	return orchestrator.AgentReply{
		Text:  "What does a good weekend look like for you?",
		Usage: orchestrator.TokenUsage{InputTokens: 2000, OutputTokens: 400},
	}, nil
}

type scriptedExtractor struct {
	mu    sync.Mutex
	calls int
	// holdFirst, when set, parks the first call until it is closed; arrived is
	// closed once that call has started.
	holdFirst chan struct{}
	arrived   chan struct{}
}

func (e *scriptedExtractor) Analyze(ctx context.Context, _ uuid.UUID, batch []orchestrator.Message) ([]scoring.Evidence, error) {
	e.mu.Lock()
	e.calls++
	first := e.calls == 1
	e.mu.Unlock()
	if first && e.holdFirst != nil {
		close(e.arrived)
		select {
		case <-e.holdFirst:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var out []scoring.Evidence
	for _, m := range batch {
		if m.Role != types.RoleUser {
			continue
		}
		out = append(out, scoring.Evidence{
			Facet:           scoring.FacetOrderliness,
			Score:           17,
			Confidence:      0.8,
			Quote:           m.Content,
			Highlight:       scoring.HighlightRange{Start: 0, End: len(m.Content)},
			SourceMessageID: m.ID,
		})
	}
	return out, nil
}

type staticPortrait struct{}

func (staticPortrait) Write(context.Context, uuid.UUID, *scoring.Profile) (string, error) {
	return "You like things in their place.", nil
}

type fixture struct {
	svc       AssessmentService
	db        *gorm.DB
	mr        *miniredis.Miniredis
	guard     costguard.Guard
	agent     *scriptedAgent
	extractor *scriptedExtractor
	sessions  repos.SessionRepo
	messages  repos.MessageRepo
	evidence  repos.EvidenceRepo
}

type fixtureOptions struct {
	messages  func(repos.MessageRepo) repos.MessageRepo
	extractor *scriptedExtractor
}

type fixtureOption func(*fixtureOptions)

func withMessageRepo(wrap func(repos.MessageRepo) repos.MessageRepo) fixtureOption {
	return func(o *fixtureOptions) { o.messages = wrap }
}

func withExtractor(e *scriptedExtractor) fixtureOption {
	return func(o *fixtureOptions) { o.extractor = e }
}

func newFixture(t *testing.T, maxMessages int, opts ...fixtureOption) *fixture {
	t.Helper()
	o := fixtureOptions{extractor: &scriptedExtractor{}}
	for _, opt := range opts {
		opt(&o)
	}
	db := testutil.DB(t)
	log := testutil.Logger(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := repos.NewSessionRepo(db, log)
	messages := repos.NewMessageRepo(db, log)
	if o.messages != nil {
		messages = o.messages(messages)
	}
	evidence := repos.NewEvidenceRepo(db, log)
	guard := costguard.NewRedisGuard(rdb, log, costguard.Config{AssessmentsPerDay: 1, KeyTTL: 48 * time.Hour}, nil)
	locker := locks.NewRedisLocker(rdb, log, locks.Config{TTL: time.Minute}, nil)

	catalog, err := NewArchetypeCatalog(log, nil, 16)
	require.NoError(t, err)
	store := NewEvidenceStore(db, sessions, evidence)
	agent := &scriptedAgent{}
	orch := orchestrator.New(log, orchestrator.Config{
		InputCostPerMTokUSD:  2.0,
		OutputCostPerMTokUSD: 8.0,
		AnalysisCadence:      2,
	}, agent, o.extractor, store, nil, nil)
	analyzer := NewProfileAnalyzer(log, sessions, messages, evidence, orch, store, catalog)
	machine := finalization.New(log, NewSessionStore(sessions), locker, analyzer, staticPortrait{}, nil, nil)

	svc := NewAssessmentService(db, log, AssessmentConfig{MaxMessages: maxMessages}, sessions, messages, guard, locker, orch, machine, nil)
	// Registered last so it runs before the database is closed.
	t.Cleanup(svc.Wait)
	return &fixture{
		svc:       svc,
		db:        db,
		mr:        mr,
		guard:     guard,
		agent:     agent,
		extractor: o.extractor,
		sessions:  sessions,
		messages:  messages,
		evidence:  evidence,
	}
}

type failingMessageRepo struct {
	repos.MessageRepo
	err error
}

func (r failingMessageRepo) Append(dbctx.Context, *types.AssessmentMessage) error {
	return r.err
}

func TestStartAssessmentEnforcesDailyLimit(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()

	ok, err := f.svc.CanStartAssessment(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusActive, session.Status)
	require.NotNil(t, session.UserID)
	assert.Equal(t, user, *session.UserID)

	_, err = f.svc.StartAssessment(ctx, user)
	var limited *costguard.RateLimitExceededError
	require.ErrorAs(t, err, &limited)

	ok, err = f.svc.CanStartAssessment(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendMessagePersistsTurnAndCost(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	res, err := f.svc.SendMessage(ctx, user, session.ID, "  I keep a tidy desk.  ")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MessageCount)
	assert.Equal(t, types.SessionStatusActive, res.Status)
	assert.Equal(t, "What does a good weekend look like for you?", res.Reply)
	assert.InDelta(t, 0.0072, res.CostIncurredUSD, 1e-12)

	rows, err := f.messages.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, types.RoleUser, rows[0].Role)
	assert.Equal(t, "I keep a tidy desk.", rows[0].Content)
	assert.Equal(t, types.RoleAssistant, rows[1].Role)
	assert.Equal(t, 400, rows[1].OutputTokens)

	cents, err := f.guard.GetDailyCost(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)
}

func TestSendMessageRunsAnalysisOnCadence(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "I plan my week on Sunday.")
	require.NoError(t, err)
	f.svc.Wait()
	rows, err := f.evidence.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "Lists help me relax.")
	require.NoError(t, err)
	f.svc.Wait()
	rows, err = f.evidence.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, string(scoring.FacetOrderliness), r.FacetName)
	}
}

func TestSendMessageBudgetPaused(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)
	_, err = f.guard.IncrementDailyCost(ctx, user, 7500)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "hello")
	var paused *orchestrator.BudgetPausedError
	require.ErrorAs(t, err, &paused)
	assert.Zero(t, f.agent.calls)

	rows, err := f.messages.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSendMessageRejectsForeignAndEmpty(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	owner := uuid.New()
	session, err := f.svc.StartAssessment(ctx, owner)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, uuid.New(), session.ID, "hi")
	var nf *finalization.SessionNotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = f.svc.SendMessage(ctx, owner, session.ID, "   ")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestConversationLifecycle(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	_, err = f.svc.GetResults(ctx, user, session.ID)
	var notReady *ResultsNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, types.SessionStatusActive, notReady.CurrentStatus)

	_, err = f.svc.GenerateResults(ctx, user, session.ID)
	var notFinalizing *finalization.SessionNotFinalizingError
	require.ErrorAs(t, err, &notFinalizing)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "I tidy before guests arrive.")
	require.NoError(t, err)
	res, err := f.svc.SendMessage(ctx, user, session.ID, "I always check the weather twice.")
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusFinalizing, res.Status)
	f.svc.Wait()

	_, err = f.svc.SendMessage(ctx, user, session.ID, "one more")
	var notActive *SessionNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, types.SessionStatusFinalizing, notActive.CurrentStatus)

	ended, err := f.svc.EndConversation(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusFinalizing, ended.Status)

	out, err := f.svc.GenerateResults(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusCompleted, out.Status)

	results, err := f.svc.GetResults(ctx, user, session.ID)
	require.NoError(t, err)
	require.NotNil(t, results.Profile)
	assert.Equal(t, "You like things in their place.", results.Portrait)
	assert.NotNil(t, results.CompletedAt)
	fs, ok := results.Profile.FacetScores[scoring.FacetOrderliness]
	require.True(t, ok)
	assert.InDelta(t, 17, fs.Score, 1e-9)

	stored, err := f.sessions.GetByID(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Equal(t, string(results.Profile.OceanCode), stored.OceanCode)
	assert.Equal(t, results.Profile.Archetype.Name, stored.ArchetypeName)
}

func TestEndConversationUnderLock(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	ended, err := f.svc.EndConversation(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusFinalizing, ended.Status)
	assert.Empty(t, ended.Progress())
	assert.False(t, f.mr.Exists("bigocean:lock:session:"+session.ID.String()))

	_, err = f.svc.EndConversation(ctx, uuid.New(), session.ID)
	var nf *finalization.SessionNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSendMessageRecordsCostWhenPersistFails(t *testing.T) {
	dbErr := errors.New("disk full")
	f := newFixture(t, 10, withMessageRepo(func(inner repos.MessageRepo) repos.MessageRepo {
		return failingMessageRepo{MessageRepo: inner, err: dbErr}
	}))
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "I keep a tidy desk.")
	require.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, f.agent.calls)

	cents, err := f.guard.GetDailyCost(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)

	stored, err := f.sessions.GetByID(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.MessageCount)
}

func TestSendMessageRejectsTurnWhenSessionLeavesActive(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	f.agent.onInvoke = func() {
		require.NoError(t, f.sessions.UpdateFields(dbctx.New(ctx), session.ID, map[string]interface{}{
			"status": types.SessionStatusFinalizing,
		}))
	}
	_, err = f.svc.SendMessage(ctx, user, session.ID, "still typing")
	var notActive *SessionNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, types.SessionStatusFinalizing, notActive.CurrentStatus)

	rows, err := f.messages.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	stored, err := f.sessions.GetByID(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.MessageCount)

	cents, err := f.guard.GetDailyCost(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)
}

func TestFinalizationExtractsMessagesAfterLastCadence(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	for _, text := range []string{"I label my drawers.", "I plan trips by the hour.", "My inbox is at zero."} {
		_, err := f.svc.SendMessage(ctx, user, session.ID, text)
		require.NoError(t, err)
	}

	out, err := f.svc.GenerateResults(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusCompleted, out.Status)

	results, err := f.svc.GetResults(ctx, user, session.ID)
	require.NoError(t, err)
	require.NotNil(t, results.Profile)
	fs, ok := results.Profile.FacetScores[scoring.FacetOrderliness]
	require.True(t, ok)
	assert.Equal(t, 3, fs.EvidenceCount)

	batches, err := f.evidence.ListBatches(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, batches)
	last := batches[len(batches)-1]
	assert.Equal(t, 3, last.ThroughCount)
	assert.True(t, last.Final)
}

func TestFinalizationCoversInFlightCadenceAnalysis(t *testing.T) {
	hold := make(chan struct{})
	ext := &scriptedExtractor{holdFirst: hold, arrived: make(chan struct{})}
	f := newFixture(t, 2, withExtractor(ext))
	ctx := context.Background()
	user := uuid.New()
	session, err := f.svc.StartAssessment(ctx, user)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user, session.ID, "I label my drawers.")
	require.NoError(t, err)
	res, err := f.svc.SendMessage(ctx, user, session.ID, "I plan trips by the hour.")
	require.NoError(t, err)
	require.Equal(t, types.SessionStatusFinalizing, res.Status)
	<-ext.arrived

	out, err := f.svc.GenerateResults(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusCompleted, out.Status)

	// The parked cadence run finishes after finalization and must not add rows.
	close(hold)
	f.svc.Wait()

	rows, err := f.evidence.ListBySession(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	batches, err := f.evidence.ListBatches(dbctx.New(ctx), session.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 0, batches[0].FromCount)
	assert.Equal(t, 2, batches[0].ThroughCount)
	assert.True(t, batches[0].Final)

	results, err := f.svc.GetResults(ctx, user, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, results.Profile.FacetScores[scoring.FacetOrderliness].EvidenceCount)
}
