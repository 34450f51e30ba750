package upload

import (
	"context"
	"fmt"

	"gallery-backend/internal/models"
)

// FormFile is one file of a multipart form upload.
type FormFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadFromForm stores files through the server and creates one photo per
// file. Every file is validated before anything is written.
func (s *Service) UploadFromForm(ctx context.Context, ownerID, albumID int64, files []FormFile) ([]*models.Photo, error) {
	album, err := s.requireAlbum(ctx, ownerID, albumID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, validationf("no files uploaded")
	}
	for _, f := range files {
		if err := ValidateUploadMeta(f.ContentType, int64(len(f.Data)), s.cfg.MaxUploadSize); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Filename, err)
		}
	}

	photos := make([]*models.Photo, 0, len(files))
	for _, f := range files {
		key := BuildObjectKey(ownerID, album.ID, f.Filename)
		if err := s.blobs.Put(ctx, key, f.Data, f.ContentType); err != nil {
			return photos, fmt.Errorf("failed to store %s: %w", f.Filename, err)
		}
		photo, err := s.createPhoto(ctx, album, ownerID, key, "", nil)
		if err != nil {
			return photos, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}
