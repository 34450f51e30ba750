package handler

import (
	"errors"
	"net/http"

	"gallery-backend/internal/storage"
	"gallery-backend/internal/upload"

	"github.com/gin-gonic/gin"
)

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, upload.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  storage.ErrNotConfigured.Error(),
			"detail": err.Error(),
		})
	case errors.Is(err, upload.ErrShareNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, upload.ErrShareExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
