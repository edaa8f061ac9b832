package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnhub-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError picks status and code from err's aggregate code. Errors
// that map to a 500 are recorded on the gin context for the request logger.
func RespondAPIError(c *gin.Context, err error) {
	e := apierr.FromError(err)
	if e.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, e.Status, e.Code, e.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
