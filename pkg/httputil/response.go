package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondCreated sends a 201 with the created resource.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	body := &Error{Code: statusCode, Message: "Internal server error"}

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.HTTPStatus()
		body.Code = statusCode
		body.Violations = appErr.Violations
		if statusCode != http.StatusInternalServerError {
			body.Message = appErr.Message
		}
	}

	if statusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error:   body,
	})
}
