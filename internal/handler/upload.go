package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"gallery-backend/internal/storage"
	"gallery-backend/internal/upload"

	"github.com/gin-gonic/gin"
)

const maxFormFiles = 20

type uploadMetaRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"gte=0"`
}

type finalizeRequest struct {
	ObjectKey string  `json:"object_key"`
	Title     string  `json:"title"`
	TagIDs    []int64 `json:"tag_ids"`
}

type signPartRequest struct {
	ObjectKey  string `json:"object_key"`
	UploadID   string `json:"upload_id"`
	PartNumber int    `json:"part_number"`
}

type completeRequest struct {
	ObjectKey string                  `json:"object_key"`
	UploadID  string                  `json:"upload_id"`
	Parts     []storage.CompletedPart `json:"parts"`
	Title     string                  `json:"title"`
	TagIDs    []int64                 `json:"tag_ids"`
}

func (h *Handler) PresignUpload(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	var req uploadMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.PresignUpload(ctx, upload.PresignRequest{
		OwnerID:     userID(c),
		AlbumID:     album,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, res)
}

func (h *Handler) FinalizeUpload(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	photo, err := h.svc.FinalizeUpload(ctx, upload.FinalizeRequest{
		OwnerID:   userID(c),
		AlbumID:   album,
		ObjectKey: req.ObjectKey,
		Title:     req.Title,
		TagIDs:    req.TagIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (h *Handler) InitiateMultipart(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	var req uploadMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.InitiateMultipart(ctx, upload.InitiateRequest{
		OwnerID:     userID(c),
		AlbumID:     album,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, res)
}

func (h *Handler) SignMultipartPart(c *gin.Context) {
	var req signPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.SignMultipartPart(ctx, upload.SignPartRequest{
		OwnerID:    userID(c),
		ObjectKey:  req.ObjectKey,
		UploadID:   req.UploadID,
		PartNumber: req.PartNumber,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, res)
}

func (h *Handler) CompleteMultipart(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.CompleteMultipart(ctx, upload.CompleteRequest{
		OwnerID:   userID(c),
		AlbumID:   album,
		ObjectKey: req.ObjectKey,
		UploadID:  req.UploadID,
		Parts:     req.Parts,
		Title:     req.Title,
		TagIDs:    req.TagIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, res)
}

// UploadForm accepts files in the "images" form field (or a single "image").
func (h *Handler) UploadForm(c *gin.Context) {
	album, ok := albumID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize*maxFormFiles)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse upload form"})
		return
	}
	headers := form.File["images"]
	if len(headers) == 0 {
		headers = form.File["image"]
	}
	if len(headers) > maxFormFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d files per upload", maxFormFiles)})
		return
	}

	files := make([]upload.FormFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFormFile(fh, h.maxUploadSize)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = append(files, f)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	photos, err := h.svc.UploadFromForm(ctx, userID(c), album, files)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photos)
}

// readFormFile reads at most limit+1 bytes so oversized files still fail
// validation by size.
func readFormFile(fh *multipart.FileHeader, limit int64) (upload.FormFile, error) {
	file, err := fh.Open()
	if err != nil {
		return upload.FormFile{}, fmt.Errorf("failed to open %s", fh.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return upload.FormFile{}, fmt.Errorf("failed to read %s", fh.Filename)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return upload.FormFile{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}
