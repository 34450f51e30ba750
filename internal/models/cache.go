package models

import "fmt"

// AlbumPhotosCacheKey is the cache key of an owner's album photo listing.
func AlbumPhotosCacheKey(albumID, ownerID int64) string {
	return fmt.Sprintf("album_photos:%d:%d", albumID, ownerID)
}

// ShareCacheKey caches a resolved album share by token.
func ShareCacheKey(token string) string {
	return "album_share:" + token
}
