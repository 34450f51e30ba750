package models

import (
	"time"
)

// Photo is the central gallery entity. EXIF and AI fields are filled in
// asynchronously by the pipeline jobs; nil means "not extracted yet".
type Photo struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	AlbumID   int64     `json:"album_id" db:"album_id"`
	Title     string    `json:"title" db:"title"`
	Image     string    `json:"image" db:"image"`
	Thumbnail *string   `json:"thumbnail,omitempty" db:"thumbnail"`
	CreatedAt time.Time `json:"uploaded_at" db:"uploaded_at"`

	TakenAt      *time.Time `json:"taken_at,omitempty" db:"taken_at"`
	CameraMake   *string    `json:"camera_make,omitempty" db:"camera_make"`
	CameraModel  *string    `json:"camera_model,omitempty" db:"camera_model"`
	FocalLength  *string    `json:"focal_length,omitempty" db:"focal_length"`
	ExposureTime *string    `json:"exposure_time,omitempty" db:"exposure_time"`
	FNumber      *string    `json:"f_number,omitempty" db:"f_number"`
	ISO          *int       `json:"iso,omitempty" db:"iso"`
	GPSLat       *float64   `json:"gps_lat,omitempty" db:"gps_lat"`
	GPSLng       *float64   `json:"gps_lng,omitempty" db:"gps_lng"`
	Width        *int       `json:"width,omitempty" db:"width"`
	Height       *int       `json:"height,omitempty" db:"height"`

	// ClipVector is a little-endian float32 array, 4 bytes per dimension.
	ClipVector   []byte  `json:"-" db:"clip_vector"`
	FaceGroupIDs []int64 `json:"face_group_ids" db:"face_group_ids"`

	AIDone     bool `json:"ai_done" db:"ai_done"`
	FaceDone   bool `json:"face_done" db:"face_done"`
	VectorDone bool `json:"vector_done" db:"vector_done"`
}

// HasImage reports whether the photo references a source blob.
func (p *Photo) HasImage() bool {
	return p.Image != ""
}

// HasThumbnail reports whether a thumbnail blob has been stored.
func (p *Photo) HasThumbnail() bool {
	return p.Thumbnail != nil && *p.Thumbnail != ""
}
