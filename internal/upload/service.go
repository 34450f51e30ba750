package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gallery-backend/internal/models"
	"gallery-backend/internal/storage"
	"gallery-backend/internal/store"
	"gallery-backend/pkg/logger"
)

// Store is the persistence used by the upload and album use cases.
type Store interface {
	GetAlbum(ctx context.Context, albumID, ownerID int64) (*models.Album, error)
	GetAlbumByID(ctx context.Context, albumID int64) (*models.Album, error)
	CreatePhoto(ctx context.Context, np store.NewPhoto) (*models.Photo, error)
	ListAlbumPhotos(ctx context.Context, albumID int64) ([]models.Photo, error)
	CreateShare(ctx context.Context, albumID int64, token string, expiresAt time.Time) (*models.AlbumShare, error)
	GetShareByToken(ctx context.Context, token string) (*models.AlbumShare, error)
}

// DirectStorage is the object store clients upload to directly. All methods
// fail with storage.ErrNotConfigured when no S3 backend is active.
type DirectStorage interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	UploadHeaders(contentType string) map[string]string
	InitiateMultipart(ctx context.Context, key, contentType string) (string, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int, ttl time.Duration) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) error
}

// Dispatcher starts the post-upload pipeline for a photo.
type Dispatcher interface {
	DispatchPostUploadTasks(ctx context.Context, photoID int64)
}

// Cache holds album listings and resolved shares.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Config struct {
	MaxUploadSize   int64
	PresignPutTTL   time.Duration
	PresignPartTTL  time.Duration
	ShareDefaultTTL time.Duration
	ListingCacheTTL time.Duration
}

// Service implements the upload orchestration and album share use cases.
type Service struct {
	store      Store
	direct     DirectStorage
	blobs      storage.BlobStore
	dispatcher Dispatcher
	cache      Cache
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
}

// NewService wires the use cases. cache may be nil.
func NewService(st Store, direct DirectStorage, blobs storage.BlobStore, dispatcher Dispatcher, cache Cache, cfg Config) *Service {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.ShareDefaultTTL <= 0 {
		cfg.ShareDefaultTTL = 24 * time.Hour
	}
	if cfg.ListingCacheTTL <= 0 {
		cfg.ListingCacheTTL = 5 * time.Minute
	}
	return &Service{
		store:      st,
		direct:     direct,
		blobs:      blobs,
		dispatcher: dispatcher,
		cache:      cache,
		cfg:        cfg,
		log:        logger.Component("upload"),
		now:        time.Now,
	}
}

// requireAlbum loads an album owned by ownerID.
func (s *Service) requireAlbum(ctx context.Context, ownerID, albumID int64) (*models.Album, error) {
	album, err := s.store.GetAlbum(ctx, albumID, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: album %d does not exist or is not yours", ErrPermissionDenied, albumID)
	}
	if err != nil {
		return nil, err
	}
	return album, nil
}

// createPhoto is the single place photos come into existence. It dispatches
// the pipeline exactly once for every photo it returns.
func (s *Service) createPhoto(ctx context.Context, album *models.Album, ownerID int64, key, title string, tagIDs []int64) (*models.Photo, error) {
	photo, err := s.store.CreatePhoto(ctx, store.NewPhoto{
		OwnerID: ownerID,
		AlbumID: album.ID,
		Title:   title,
		Image:   key,
		TagIDs:  tagIDs,
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.DispatchPostUploadTasks(ctx, photo.ID)
	s.invalidateListing(ctx, album.ID, ownerID)

	s.log.Info("photo created", "photo_id", photo.ID, "album_id", album.ID, "owner_id", ownerID)
	return photo, nil
}

func (s *Service) invalidateListing(ctx context.Context, albumID, ownerID int64) {
	if s.cache == nil {
		return
	}
	key := models.AlbumPhotosCacheKey(albumID, ownerID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("failed to invalidate cache", "key", key, "error", err)
	}
}

// normalizeTagIDs rejects non-positive ids and drops duplicates.
func normalizeTagIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, validationf("invalid tag id %d", id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
