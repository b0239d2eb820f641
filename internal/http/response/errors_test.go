package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/data/repos"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/scoring"
	"github.com/yungbote/bigocean-backend/internal/services"
)

func TestFromErrorMapping(t *testing.T) {
	id := uuid.New()
	midnight := time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"budget", fmt.Errorf("send: %w", &orchestrator.BudgetPausedError{SessionID: id, ResumeAfter: midnight}), http.StatusPaymentRequired, "budget_paused"},
		{"rate", &costguard.RateLimitExceededError{UserID: id, ResetAt: midnight, Limit: 1}, http.StatusTooManyRequests, "rate_limited"},
		{"not found", &finalization.SessionNotFoundError{SessionID: id}, http.StatusNotFound, "session_not_found"},
		{"not finalizing", &finalization.SessionNotFinalizingError{SessionID: id, CurrentStatus: "active"}, http.StatusConflict, "session_not_finalizing"},
		{"not active", &services.SessionNotActiveError{SessionID: id, CurrentStatus: "finalizing"}, http.StatusConflict, "session_not_active"},
		{"not ready", &services.ResultsNotReadyError{SessionID: id, CurrentStatus: "finalizing"}, http.StatusConflict, "results_not_ready"},
		{"validation", &scoring.ValidationError{Field: "score", Value: 21, Reason: "out of range"}, http.StatusUnprocessableEntity, "validation_error"},
		{"input", fmt.Errorf("%w: empty", services.ErrInvalidInput), http.StatusUnprocessableEntity, "invalid_input"},
		{"seq", repos.ErrSeqConflict, http.StatusConflict, "concurrent_message"},
		{"other", errors.New("connection refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.code, got.Code)
		})
	}
	assert.Nil(t, FromError(nil))
}

func TestFailRendersDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	midnight := time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		Fail(c, nil, &orchestrator.BudgetPausedError{SessionID: uuid.New(), ResumeAfter: midnight, CurrentConfidence: 0.42})
	})
	r.GET("/boom", func(c *gin.Context) {
		Fail(c, nil, errors.New("dial tcp 10.0.0.1:5432: secret detail"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "budget_paused", body.Error["code"])
	assert.Equal(t, "2025-05-21T00:00:00Z", body.Error["resume_after"])
	assert.InDelta(t, 0.42, body.Error["current_confidence"], 1e-9)
	assert.NotEmpty(t, body.Error["message"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}
