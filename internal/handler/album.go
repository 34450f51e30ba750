package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type shareRequest struct {
	// ExpiresIn is in seconds; zero uses the server default.
	ExpiresIn int64 `json:"expires_in" binding:"gte=0"`
}

func (h *Handler) ListAlbumPhotos(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	photos, err := h.svc.OwnedAlbumPhotos(ctx, userID(c), album)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

func (h *Handler) CreateShare(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	var req shareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	share, err := h.svc.CreateShare(ctx, userID(c), album, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      share.Token,
		"expires_at": share.ExpiresAt,
	})
}

func (h *Handler) ResolveShare(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	shared, err := h.svc.ResolveShare(ctx, c.Param("token"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shared)
}
