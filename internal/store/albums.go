package store

import (
	"context"
	"fmt"
	"time"

	"gallery-backend/internal/models"
)

// GetAlbum returns the album only if ownerID owns it.
func (s *Store) GetAlbum(ctx context.Context, albumID, ownerID int64) (*models.Album, error) {
	var a models.Album
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, created_at FROM albums WHERE id = $1 AND owner_id = $2`,
		albumID, ownerID,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err, "album", albumID)
	}
	return &a, nil
}

func (s *Store) CreateShare(ctx context.Context, albumID int64, token string, expiresAt time.Time) (*models.AlbumShare, error) {
	share := models.AlbumShare{AlbumID: albumID, Token: token, ExpiresAt: expiresAt}
	err := s.db.QueryRow(ctx,
		`INSERT INTO album_shares (album_id, token, expires_at) VALUES ($1, $2, $3) RETURNING id, created_at`,
		albumID, token, expiresAt,
	).Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}
	return &share, nil
}

func (s *Store) GetShareByToken(ctx context.Context, token string) (*models.AlbumShare, error) {
	var share models.AlbumShare
	err := s.db.QueryRow(ctx,
		`SELECT id, album_id, token, expires_at, created_at FROM album_shares WHERE token = $1`,
		token,
	).Scan(&share.ID, &share.AlbumID, &share.Token, &share.ExpiresAt, &share.CreatedAt)
	if err != nil {
		return nil, notFound(err, "share", "token")
	}
	return &share, nil
}

// GetAlbumByID loads an album without an ownership check, for share links.
func (s *Store) GetAlbumByID(ctx context.Context, albumID int64) (*models.Album, error) {
	var a models.Album
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, created_at FROM albums WHERE id = $1`,
		albumID,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err, "album", albumID)
	}
	return &a, nil
}
