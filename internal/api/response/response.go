// Package response writes JSON error bodies for the HTTP handlers.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holyai/holyai/internal/domain"
)

// Status maps an error to its HTTP status
func Status(err error) int {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error writes {"error": message} with the mapped status and records err on
// the context for the request logger.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(Status(err), gin.H{"error": err.Error()})
}

// BadRequest writes a 400 with the given message
func BadRequest(c *gin.Context, message string) {
	Error(c, domain.Invalid("%s", message))
}

// MethodNotAllowed writes the 405 body used for every route
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
