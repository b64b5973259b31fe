package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"diagramboard/internal/cleanup"
	"diagramboard/internal/object"

	"github.com/gin-gonic/gin"
)

// Cleaner turns a canvas image into a structured scene
type Cleaner interface {
	Clean(ctx context.Context, req cleanup.Request) (object.Scene, error)
}

type CleanupHandler struct {
	cleaner Cleaner
	logger  *slog.Logger
}

func NewCleanupHandler(cleaner Cleaner, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{cleaner: cleaner, logger: logger}
}

// Handle: POST /api/cleanup
func (h *CleanupHandler) Handle(c *gin.Context) {
	var req cleanup.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body."})
		return
	}

	scene, err := h.cleaner.Clean(c.Request.Context(), req)
	if err != nil {
		status, detail := errorResponse(err)
		h.logger.Warn("cleanup request failed", "status", status, "kind", cleanup.KindOf(err).String(), "error", err)
		c.JSON(status, gin.H{"detail": detail})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Diagram cleaned successfully.",
		"data":    scene,
	})
}

// errorResponse: maps a cleanup failure to its HTTP status and client-facing detail
func errorResponse(err error) (int, string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "AI cleanup timed out."
	}

	var configErr *cleanup.ConfigurationError
	if errors.As(err, &configErr) {
		if configErr.MissingKey {
			return http.StatusInternalServerError, configErr.Reason
		}
		return http.StatusUnauthorized, configErr.Reason
	}

	switch cleanup.KindOf(err) {
	case cleanup.KindClientProtocol:
		return http.StatusBadRequest, err.Error()
	case cleanup.KindTerminal:
		return http.StatusBadGateway, "OpenAI API request failed: " + err.Error()
	case cleanup.KindExhausted:
		return http.StatusServiceUnavailable, "AI cleanup failed after multiple retries."
	default:
		return http.StatusInternalServerError, "An unexpected error occurred during AI processing."
	}
}
