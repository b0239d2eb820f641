package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	httpH "github.com/yungbote/bigocean-backend/internal/http/handlers"
	httpMW "github.com/yungbote/bigocean-backend/internal/http/middleware"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/services"
)

type fakeAssessments struct {
	started   []uuid.UUID
	sendErr   error
	lastText  string
	resultErr error
}

func (f *fakeAssessments) StartAssessment(ctx context.Context, userID uuid.UUID) (*types.AssessmentSession, error) {
	if len(f.started) > 0 {
		return nil, &costguard.RateLimitExceededError{UserID: userID, ResetAt: time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC), Limit: 1}
	}
	f.started = append(f.started, userID)
	owner := userID
	return &types.AssessmentSession{ID: uuid.New(), UserID: &owner, Status: types.SessionStatusActive}, nil
}

func (f *fakeAssessments) CanStartAssessment(ctx context.Context, userID uuid.UUID) (bool, error) {
	return len(f.started) == 0, nil
}

func (f *fakeAssessments) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, text string) (*services.SendMessageResult, error) {
	f.lastText = text
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &services.SendMessageResult{SessionID: sessionID, Reply: "tell me more", MessageCount: 1, Status: types.SessionStatusActive, CostIncurredUSD: 0.0043}, nil
}

func (f *fakeAssessments) EndConversation(ctx context.Context, userID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	return &types.AssessmentSession{ID: sessionID, Status: types.SessionStatusFinalizing}, nil
}

func (f *fakeAssessments) GenerateResults(ctx context.Context, userID, sessionID uuid.UUID) (*finalization.Result, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return &finalization.Result{Status: types.SessionStatusCompleted}, nil
}

func (f *fakeAssessments) GetResults(ctx context.Context, userID, sessionID uuid.UUID) (*services.AssessmentResults, error) {
	return nil, &services.ResultsNotReadyError{SessionID: sessionID, CurrentStatus: types.SessionStatusFinalizing, Progress: types.ProgressAnalyzing}
}

func (f *fakeAssessments) Wait() {}

type testServer struct {
	engine *gin.Engine
	fake   *fakeAssessments
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	auth, err := services.NewAuthService(log, "test-secret")
	require.NoError(t, err)
	token, err := auth.IssueAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	fake := &fakeAssessments{}
	engine := NewRouter(RouterConfig{
		Log:               log,
		Metrics:           observability.NewMetrics(prometheus.NewRegistry()),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, auth),
		AssessmentHandler: httpH.NewAssessmentHandler(log, fake),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.HealthCheckFunc{
			"db": func(ctx context.Context) error { return nil },
		}),
	})
	return &testServer{engine: engine, fake: fake, token: token}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func errorCode(body map[string]any) any {
	e, _ := body["error"].(map[string]any)
	return e["code"]
}

func TestStartAndRateLimit(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/assessments/eligibility", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["can_start"])

	rec, body = s.do(t, http.MethodPost, "/api/assessments", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotNil(t, body["session"])

	rec, body = s.do(t, http.MethodPost, "/api/assessments", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", errorCode(body))
	assert.Equal(t, "2025-05-21T00:00:00Z", body["error"].(map[string]any)["reset_at"])
}

func TestSendMessageRoutes(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	rec, body := s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/messages", `{"message":"I like hiking alone"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tell me more", body["reply"])
	assert.Equal(t, "I like hiking alone", s.fake.lastText)

	rec, body = s.do(t, http.MethodPost, "/api/assessments/not-a-uuid/messages", `{"message":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_session_id", errorCode(body))

	rec, _ = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/messages", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	s.fake.sendErr = &orchestrator.BudgetPausedError{SessionID: id, ResumeAfter: time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC), CurrentConfidence: 0.5}
	rec, body = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/messages", `{"message":"hi"}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "budget_paused", errorCode(body))

	s.fake.sendErr = errors.New("db down")
	rec, body = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/messages", `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", errorCode(body))
}

func TestFinalizationRoutes(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	rec, body := s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/end", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["session"])

	rec, body = s.do(t, http.MethodGet, "/api/assessments/"+id.String()+"/results", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "results_not_ready", errorCode(body))
	assert.Equal(t, types.ProgressAnalyzing, body["error"].(map[string]any)["finalization_progress"])

	rec, body = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.SessionStatusCompleted, body["status"])

	s.fake.resultErr = &finalization.SessionNotFinalizingError{SessionID: id, CurrentStatus: types.SessionStatusActive}
	rec, body = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/results", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session_not_finalizing", errorCode(body))
	assert.Equal(t, types.SessionStatusActive, body["error"].(map[string]any)["current_status"])

	s.fake.resultErr = &finalization.SessionNotFoundError{SessionID: id}
	rec, _ = s.do(t, http.MethodPost, "/api/assessments/"+id.String()+"/results", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnauthenticatedAndPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/assessments", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, s.fake.started)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bigocean_api_requests_total")
}

func TestHealthDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.HealthCheckFunc{
			"redis": func(ctx context.Context) error { return errors.New("connection refused") },
		}),
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
