package upload

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxUploadSize = 50 << 20 // 50MB

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AllowedContentTypes is the upload allow-list.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sanitize makes filename safe to embed in an object key.
func Sanitize(filename string) string {
	name := strings.ReplaceAll(strings.TrimSpace(filename), " ", "_")
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if name == "" {
		return "file_" + randomHex()
	}
	return name
}

// KeyPrefix is the prefix every object key of (ownerID, albumID) starts with.
func KeyPrefix(ownerID, albumID int64) string {
	return fmt.Sprintf("photos/%d/%d/", ownerID, albumID)
}

// OwnerPrefix is the prefix shared by all of an owner's object keys.
func OwnerPrefix(ownerID int64) string {
	return fmt.Sprintf("photos/%d/", ownerID)
}

// HasKeyPrefix reports whether a client-supplied key is in canonical form
// and lies under prefix. Keys with "." or ".." segments, empty segments or
// a trailing slash never match.
func HasKeyPrefix(key, prefix string) bool {
	if key == "" || path.Clean(key) != key || strings.ContainsRune(key, '\\') {
		return false
	}
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

// BuildObjectKey returns photos/{owner}/{album}/{YYYYMMDD}/{hex}_{filename}.
func BuildObjectKey(ownerID, albumID int64, filename string) string {
	return buildObjectKeyAt(time.Now(), ownerID, albumID, filename)
}

func buildObjectKeyAt(now time.Time, ownerID, albumID int64, filename string) string {
	return fmt.Sprintf("%s%s/%s_%s",
		KeyPrefix(ownerID, albumID),
		now.UTC().Format("20060102"),
		randomHex(),
		Sanitize(filename),
	)
}

// ValidateUploadMeta checks a client-declared content type and size.
func ValidateUploadMeta(contentType string, size, maxSize int64) error {
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	if size < 0 {
		return validationf("size must not be negative")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if size > maxSize {
		return fmt.Errorf("%w: max %dMB", ErrTooLarge, maxSize>>20)
	}
	return nil
}
