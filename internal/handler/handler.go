package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gallery-backend/internal/models"
	"gallery-backend/internal/upload"
	"gallery-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

const requestTimeout = 30 * time.Second

// Service is the use-case surface exposed over HTTP.
type Service interface {
	PresignUpload(ctx context.Context, req upload.PresignRequest) (*upload.PresignResult, error)
	FinalizeUpload(ctx context.Context, req upload.FinalizeRequest) (*models.Photo, error)
	InitiateMultipart(ctx context.Context, req upload.InitiateRequest) (*upload.InitiateResult, error)
	SignMultipartPart(ctx context.Context, req upload.SignPartRequest) (*upload.SignPartResult, error)
	CompleteMultipart(ctx context.Context, req upload.CompleteRequest) (*upload.CompleteResult, error)
	UploadFromForm(ctx context.Context, ownerID, albumID int64, files []upload.FormFile) ([]*models.Photo, error)
	OwnedAlbumPhotos(ctx context.Context, ownerID, albumID int64) ([]models.Photo, error)
	CreateShare(ctx context.Context, ownerID, albumID int64, expiresIn time.Duration) (*models.AlbumShare, error)
	ResolveShare(ctx context.Context, token string) (*upload.SharedAlbum, error)
}

type Handler struct {
	svc           Service
	maxUploadSize int64
	log           *slog.Logger
}

func NewHandler(svc Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = upload.DefaultMaxUploadSize
	}
	return &Handler{
		svc:           svc,
		maxUploadSize: maxUploadSize,
		log:           logger.Component("http"),
	}
}

// Register mounts all routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/shares/:token", h.ResolveShare)

	api := r.Group("/api", RequireUser())
	api.GET("/albums/:id/photos", h.ListAlbumPhotos)
	api.POST("/albums/:id/share", h.CreateShare)
	api.POST("/albums/:id/upload", h.UploadForm)
	api.POST("/albums/:id/presign", h.PresignUpload)
	api.POST("/albums/:id/finalize", h.FinalizeUpload)
	api.POST("/albums/:id/multipart/initiate", h.InitiateMultipart)
	api.POST("/albums/:id/multipart/complete", h.CompleteMultipart)
	api.POST("/multipart/sign-part", h.SignMultipartPart)
}

type RouterOptions struct {
	// AllowedOrigins lists browser origins allowed to call the API. Empty
	// allows any origin.
	AllowedOrigins []string
	// Pprof mounts the runtime profiler under /debug/pprof.
	Pprof bool
}

// NewRouter builds a gin engine with recovery, CORS and request logging.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(opts.AllowedOrigins), requestLogger(h.log))
	if opts.Pprof {
		pprof.Register(r)
	}
	h.Register(r)
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", UserIDHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func respondData(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"data": payload})
}
