package models

import "time"

type Album struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Tag struct {
	ID      int64  `json:"id" db:"id"`
	OwnerID int64  `json:"owner_id" db:"owner_id"`
	Name    string `json:"name" db:"name"`
}

// AlbumShare is a time-limited public link to an album. Any number of
// fetches succeed until ExpiresAt.
type AlbumShare struct {
	ID        int64     `json:"id" db:"id"`
	AlbumID   int64     `json:"album_id" db:"album_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether the share is still usable at now.
func (s *AlbumShare) IsValid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
