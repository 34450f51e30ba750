package upload

import (
	"context"
	"encoding/json"

	"gallery-backend/internal/models"
)

// ListAlbumPhotos returns an owned album's photos, newest first. The listing
// is cached until a photo in the album is created or processed.
func (s *Service) ListAlbumPhotos(ctx context.Context, ownerID, albumID int64) ([]models.Photo, error) {
	key := models.AlbumPhotosCacheKey(albumID, ownerID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var photos []models.Photo
			if err := json.Unmarshal([]byte(raw), &photos); err == nil {
				return photos, nil
			}
		}
	}

	photos, err := s.store.ListAlbumPhotos(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.setCached(ctx, key, photos, s.cfg.ListingCacheTTL)
	}
	return photos, nil
}

// OwnedAlbumPhotos checks ownership before listing.
func (s *Service) OwnedAlbumPhotos(ctx context.Context, ownerID, albumID int64) ([]models.Photo, error) {
	if _, err := s.requireAlbum(ctx, ownerID, albumID); err != nil {
		return nil, err
	}
	return s.ListAlbumPhotos(ctx, ownerID, albumID)
}
