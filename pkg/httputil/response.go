package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// RespondWithMessage sends a success response carrying a user-facing notice.
func RespondWithMessage(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// RespondWithError sends an error response. Errors without an AppError in
// their chain are reported as internal errors and their text is withheld.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.StatusCode()
		message = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, Response{
		Status:  StatusError,
		Message: message,
	})
}
