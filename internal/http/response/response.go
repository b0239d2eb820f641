package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bigocean-backend/internal/platform/apierr"
)

// ErrorCodeKey is the gin context key holding the machine code of an error response.
const ErrorCodeKey = "error_code"

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"-"`
}

type ErrorEnvelope struct {
	Error map[string]any `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	RespondAPIError(c, apierr.New(status, code, err))
}

// RespondAPIError renders {"error":{"message","code",...details}}. Details never
// override message or code.
func RespondAPIError(c *gin.Context, e *apierr.Error) {
	if e == nil {
		e = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	body := map[string]any{}
	for k, v := range e.Details {
		body[k] = v
	}
	body["message"] = msg
	if e.Code != "" {
		body["code"] = e.Code
	}
	if e.Code != "" {
		c.Set(ErrorCodeKey, e.Code)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
