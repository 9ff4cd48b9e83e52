// Package response provides shared HTTP response helpers.
package response

import (
	"net/http"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// DomainError maps an apperr error to its HTTP status. Non-apperr errors
// become 500s with a generic message so internals never leak.
func DomainError(c *gin.Context, err error) {
	if e, ok := err.(*apperr.Error); ok {
		c.JSON(e.HTTPStatus(), ErrorResponse{Error: e.Message, Details: e.Details})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
