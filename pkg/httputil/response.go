package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithError sends an error response. Only AppError messages reach
// the client; anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	RespondWithErrorData(c, err, nil)
}

// RespondWithErrorData sends an error response that still carries data.
func RespondWithErrorData(c *gin.Context, err error, data interface{}) {
	statusCode, message := StatusAndMessage(err)
	_ = c.Error(err)
	c.JSON(statusCode, &Response{
		Status:  "error",
		Message: message,
		Data:    data,
	})
}

// StatusAndMessage maps err to an HTTP status and a client-safe message.
func StatusAndMessage(err error) (int, string) {
	var appErr *apperrors.AppError
	if asAppError(err, &appErr) {
		if appErr.Code == apperrors.ErrInternal {
			return http.StatusInternalServerError, "internal server error"
		}
		return appErr.StatusCode(), appErr.Message
	}
	return http.StatusInternalServerError, "internal server error"
}
