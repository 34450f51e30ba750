package upload

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gallery-backend/internal/models"
	"gallery-backend/internal/store"
)

const (
	shareTokenBytes = 32
	maxShareCache   = 10 * time.Minute
)

// SharedAlbum is what a share link resolves to.
type SharedAlbum struct {
	Album  *models.Album      `json:"album"`
	Share  *models.AlbumShare `json:"share"`
	Photos []models.Photo     `json:"photos"`
}

func newShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateShare creates a public link to an owned album. A zero expiresIn
// uses the configured default.
func (s *Service) CreateShare(ctx context.Context, ownerID, albumID int64, expiresIn time.Duration) (*models.AlbumShare, error) {
	if expiresIn < 0 {
		return nil, validationf("expires_in must be positive")
	}
	if expiresIn == 0 {
		expiresIn = s.cfg.ShareDefaultTTL
	}
	album, err := s.requireAlbum(ctx, ownerID, albumID)
	if err != nil {
		return nil, err
	}
	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	share, err := s.store.CreateShare(ctx, album.ID, token, s.now().Add(expiresIn))
	if err != nil {
		return nil, err
	}
	s.log.Info("album shared", "album_id", album.ID, "expires_at", share.ExpiresAt)
	return share, nil
}

// ResolveShare returns the shared album and its photos while the link is valid.
func (s *Service) ResolveShare(ctx context.Context, token string) (*SharedAlbum, error) {
	if token == "" {
		return nil, ErrShareNotFound
	}
	share, err := s.lookupShare(ctx, token)
	if err != nil {
		return nil, err
	}
	if !share.IsValid(s.now()) {
		return nil, ErrShareExpired
	}

	album, err := s.store.GetAlbumByID(ctx, share.AlbumID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	photos, err := s.ListAlbumPhotos(ctx, album.OwnerID, album.ID)
	if err != nil {
		return nil, err
	}
	return &SharedAlbum{Album: album, Share: share, Photos: photos}, nil
}

// lookupShare reads through the cache. Entries live until the share expires
// or for maxShareCache, whichever is sooner.
func (s *Service) lookupShare(ctx context.Context, token string) (*models.AlbumShare, error) {
	key := models.ShareCacheKey(token)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var share models.AlbumShare
			if err := json.Unmarshal([]byte(raw), &share); err == nil {
				return &share, nil
			}
		}
	}

	share, err := s.store.GetShareByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}

	if ttl := share.ExpiresAt.Sub(s.now()); s.cache != nil && ttl > 0 {
		if ttl > maxShareCache {
			ttl = maxShareCache
		}
		s.setCached(ctx, key, share, ttl)
	}
	return share, nil
}

func (s *Service) setCached(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), ttl); err != nil {
		s.log.Warn("failed to cache value", "key", key, "error", err)
	}
}
