package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/http/response"
	"github.com/yungbote/bigocean-backend/internal/platform/apierr"
	"github.com/yungbote/bigocean-backend/internal/platform/ctxutil"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/services"
)

type AssessmentHandler struct {
	log        *logger.Logger
	assessment services.AssessmentService
}

func NewAssessmentHandler(log *logger.Logger, assessment services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{log: log.With("handler", "AssessmentHandler"), assessment: assessment}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondAPIError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errUnauthorized))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, "invalid_session_id", err))
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/assessments
func (h *AssessmentHandler) Start(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	session, err := h.assessment.StartAssessment(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": session})
}

// GET /api/assessments/eligibility
func (h *AssessmentHandler) Eligibility(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	allowed, err := h.assessment.CanStartAssessment(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"can_start": allowed})
}

// POST /api/assessments/:id/messages
// body: { "message": "..." }
func (h *AssessmentHandler) SendMessage(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return
	}
	out, err := h.assessment.SendMessage(c.Request.Context(), userID, sessionID, req.Message)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/assessments/:id/end
func (h *AssessmentHandler) End(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}
	session, err := h.assessment.EndConversation(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"session": session})
}

// POST /api/assessments/:id/results
func (h *AssessmentHandler) GenerateResults(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}
	res, err := h.assessment.GenerateResults(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"status": res.Status})
}

// GET /api/assessments/:id/results
func (h *AssessmentHandler) GetResults(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}
	res, err := h.assessment.GetResults(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
