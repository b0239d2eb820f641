package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/data/repos"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/apierr"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
	"github.com/yungbote/bigocean-backend/internal/services"
)

var errInternal = errors.New("internal server error")

// FromError maps a core error onto its HTTP status and machine code.
// Anything unrecognized becomes a 500 that hides the underlying message.
func FromError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	var (
		api        *apierr.Error
		paused     *orchestrator.BudgetPausedError
		limited    *costguard.RateLimitExceededError
		notFound   *finalization.SessionNotFoundError
		notFinal   *finalization.SessionNotFinalizingError
		notActive  *services.SessionNotActiveError
		notReady   *services.ResultsNotReadyError
		validation *scoring.ValidationError
	)
	switch {
	case errors.As(err, &api):
		return api
	case errors.As(err, &paused):
		return apierr.New(http.StatusPaymentRequired, "budget_paused", err).
			WithDetail("resume_after", paused.ResumeAfter.UTC().Format(time.RFC3339)).
			WithDetail("current_confidence", paused.CurrentConfidence)
	case errors.As(err, &limited):
		return apierr.New(http.StatusTooManyRequests, "rate_limited", err).
			WithDetail("reset_at", limited.ResetAt.UTC().Format(time.RFC3339))
	case errors.As(err, &notFound):
		return apierr.New(http.StatusNotFound, "session_not_found", err)
	case errors.As(err, &notFinal):
		return apierr.New(http.StatusConflict, "session_not_finalizing", err).
			WithDetail("current_status", notFinal.CurrentStatus)
	case errors.As(err, &notActive):
		return apierr.New(http.StatusConflict, "session_not_active", err).
			WithDetail("current_status", notActive.CurrentStatus)
	case errors.As(err, &notReady):
		e := apierr.New(http.StatusConflict, "results_not_ready", err).
			WithDetail("current_status", notReady.CurrentStatus)
		if notReady.Progress != "" {
			e = e.WithDetail("finalization_progress", notReady.Progress)
		}
		return e
	case errors.As(err, &validation), errors.Is(err, scoring.ErrInvalidEvidence):
		return apierr.New(http.StatusUnprocessableEntity, "validation_error", err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.New(http.StatusUnprocessableEntity, "invalid_input", err)
	case errors.Is(err, repos.ErrSeqConflict):
		return apierr.New(http.StatusConflict, "concurrent_message", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", errInternal)
	}
}

// Fail renders err and logs it. Policy rejections log at Info; only 5xx logs at Error.
func Fail(c *gin.Context, log *logger.Logger, err error) {
	e := FromError(err)
	if log != nil {
		fields := []interface{}{"path", c.FullPath(), "status", e.Status, "code", e.Code, "error", err}
		if e.Status >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Info("request rejected", fields...)
		}
	}
	RespondAPIError(c, e)
}
