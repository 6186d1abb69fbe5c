package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/livepoll-server/internal/utils"
)

// ErrorResponse represents an error response body. Message repeats Error
// for clients that read the "message" key.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorResponse(msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Message: msg}
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse(msg))
}

func internalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "internal server error")
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
