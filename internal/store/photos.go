package store

import (
	"context"
	"fmt"
	"strings"

	"gallery-backend/internal/metadata"
	"gallery-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const photoColumns = `id, owner_id, album_id, title, image, thumbnail, uploaded_at,
	taken_at, camera_make, camera_model, focal_length, exposure_time, f_number, iso,
	gps_lat, gps_lng, width, height, clip_vector, face_group_ids, ai_done, face_done, vector_done`

// NewPhoto is the data needed to create a photo row.
type NewPhoto struct {
	OwnerID int64
	AlbumID int64
	Title   string
	Image   string
	TagIDs  []int64
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.AlbumID, &p.Title, &p.Image, &p.Thumbnail, &p.CreatedAt,
		&p.TakenAt, &p.CameraMake, &p.CameraModel, &p.FocalLength, &p.ExposureTime, &p.FNumber, &p.ISO,
		&p.GPSLat, &p.GPSLng, &p.Width, &p.Height, &p.ClipVector, &p.FaceGroupIDs,
		&p.AIDone, &p.FaceDone, &p.VectorDone,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	p, err := scanPhoto(s.db.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "photo", id)
	}
	return p, nil
}

// CreatePhoto inserts the photo and links the requested tags. Tags not owned
// by the photo's owner are ignored.
func (s *Store) CreatePhoto(ctx context.Context, np NewPhoto) (*models.Photo, error) {
	var photo *models.Photo
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		photo, err = scanPhoto(tx.QueryRow(ctx,
			`INSERT INTO photos (owner_id, album_id, title, image) VALUES ($1, $2, $3, $4) RETURNING `+photoColumns,
			np.OwnerID, np.AlbumID, np.Title, np.Image,
		))
		if err != nil {
			return fmt.Errorf("failed to insert photo: %w", err)
		}
		if len(np.TagIDs) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO photo_tags (photo_id, tag_id)
			 SELECT $1, id FROM tags WHERE owner_id = $2 AND id = ANY($3)
			 ON CONFLICT DO NOTHING`,
			photo.ID, np.OwnerID, np.TagIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to attach tags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *Store) ListAlbumPhotos(ctx context.Context, albumID int64) ([]models.Photo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE album_id = $1 ORDER BY uploaded_at DESC, id DESC`,
		albumID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// SetThumbnail records the thumbnail key unless one is already set.
func (s *Store) SetThumbnail(ctx context.Context, photoID int64, key string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE photos SET thumbnail = $1 WHERE id = $2 AND (thumbnail IS NULL OR thumbnail = '')`,
		key, photoID,
	)
	if err != nil {
		return fmt.Errorf("failed to set thumbnail: %w", err)
	}
	return nil
}

// UpdateMetadata writes only the fields present in u.
func (s *Store) UpdateMetadata(ctx context.Context, photoID int64, u metadata.Updates) error {
	sets, args := metadataAssignments(u)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, photoID)
	query := fmt.Sprintf(`UPDATE photos SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	return nil
}

func metadataAssignments(u metadata.Updates) ([]string, []any) {
	values := map[string]any{}
	if u.Width != nil {
		values["width"] = *u.Width
	}
	if u.Height != nil {
		values["height"] = *u.Height
	}
	if u.CameraMake != nil {
		values["camera_make"] = *u.CameraMake
	}
	if u.CameraModel != nil {
		values["camera_model"] = *u.CameraModel
	}
	if u.FocalLength != nil {
		values["focal_length"] = *u.FocalLength
	}
	if u.ExposureTime != nil {
		values["exposure_time"] = *u.ExposureTime
	}
	if u.FNumber != nil {
		values["f_number"] = *u.FNumber
	}
	if u.ISO != nil {
		values["iso"] = *u.ISO
	}
	if u.TakenAt != nil {
		values["taken_at"] = *u.TakenAt
	}
	if u.GPSLat != nil {
		values["gps_lat"] = *u.GPSLat
	}
	if u.GPSLng != nil {
		values["gps_lng"] = *u.GPSLng
	}

	var sets []string
	var args []any
	for _, column := range u.Fields() {
		args = append(args, values[column])
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return sets, args
}
