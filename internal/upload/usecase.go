package upload

import (
	"context"
	"net/http"

	"gallery-backend/internal/models"
	"gallery-backend/internal/storage"
)

type PresignRequest struct {
	OwnerID     int64
	AlbumID     int64
	Filename    string
	ContentType string
	Size        int64
}

type PresignResult struct {
	ObjectKey string            `json:"object_key"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

type FinalizeRequest struct {
	OwnerID   int64
	AlbumID   int64
	ObjectKey string
	Title     string
	TagIDs    []int64
}

type InitiateRequest struct {
	OwnerID     int64
	AlbumID     int64
	Filename    string
	ContentType string
	Size        int64
}

type InitiateResult struct {
	ObjectKey string `json:"object_key"`
	UploadID  string `json:"upload_id"`
}

type SignPartRequest struct {
	OwnerID    int64
	ObjectKey  string
	UploadID   string
	PartNumber int
}

type SignPartResult struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

type CompleteRequest struct {
	OwnerID   int64
	AlbumID   int64
	ObjectKey string
	UploadID  string
	Parts     []storage.CompletedPart
	Title     string
	TagIDs    []int64
}

type CompleteResult struct {
	Status string        `json:"status"`
	Photo  *models.Photo `json:"photo"`
}

// PresignUpload returns a single-shot PUT URL for a new object under the
// caller's album.
func (s *Service) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResult, error) {
	album, err := s.requireAlbum(ctx, req.OwnerID, req.AlbumID)
	if err != nil {
		return nil, err
	}
	if err := ValidateUploadMeta(req.ContentType, req.Size, s.cfg.MaxUploadSize); err != nil {
		return nil, err
	}

	key := BuildObjectKey(req.OwnerID, album.ID, req.Filename)
	url, err := s.direct.PresignPut(ctx, key, req.ContentType, s.cfg.PresignPutTTL)
	if err != nil {
		return nil, err
	}
	return &PresignResult{
		ObjectKey: key,
		URL:       url,
		Method:    http.MethodPut,
		Headers:   s.direct.UploadHeaders(req.ContentType),
	}, nil
}

// FinalizeUpload records a photo for an object the client has PUT. The key
// prefix is the only check; the object is not checked for existence.
func (s *Service) FinalizeUpload(ctx context.Context, req FinalizeRequest) (*models.Photo, error) {
	if req.ObjectKey == "" {
		return nil, ErrInvalidObjectKey
	}
	tagIDs, err := normalizeTagIDs(req.TagIDs)
	if err != nil {
		return nil, err
	}
	album, err := s.requireAlbum(ctx, req.OwnerID, req.AlbumID)
	if err != nil {
		return nil, err
	}
	if !HasKeyPrefix(req.ObjectKey, KeyPrefix(req.OwnerID, album.ID)) {
		return nil, ErrInvalidObjectKey
	}
	return s.createPhoto(ctx, album, req.OwnerID, req.ObjectKey, req.Title, tagIDs)
}

func (s *Service) InitiateMultipart(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	album, err := s.requireAlbum(ctx, req.OwnerID, req.AlbumID)
	if err != nil {
		return nil, err
	}
	if err := ValidateUploadMeta(req.ContentType, req.Size, s.cfg.MaxUploadSize); err != nil {
		return nil, err
	}

	key := BuildObjectKey(req.OwnerID, album.ID, req.Filename)
	uploadID, err := s.direct.InitiateMultipart(ctx, key, req.ContentType)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{ObjectKey: key, UploadID: uploadID}, nil
}

// SignMultipartPart presigns one part of an upload under the caller's own
// key space.
func (s *Service) SignMultipartPart(ctx context.Context, req SignPartRequest) (*SignPartResult, error) {
	if !HasKeyPrefix(req.ObjectKey, OwnerPrefix(req.OwnerID)) {
		return nil, ErrInvalidObjectKey
	}
	if req.UploadID == "" {
		return nil, validationf("invalid upload_id")
	}
	if req.PartNumber <= 0 {
		return nil, validationf("invalid part_number %d", req.PartNumber)
	}

	url, err := s.direct.PresignPart(ctx, req.ObjectKey, req.UploadID, req.PartNumber, s.cfg.PresignPartTTL)
	if err != nil {
		return nil, err
	}
	return &SignPartResult{URL: url, Method: http.MethodPut}, nil
}

// CompleteMultipart finishes the upload and only then creates the photo. If
// the store rejects completion nothing is created or dispatched.
func (s *Service) CompleteMultipart(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	if req.ObjectKey == "" {
		return nil, ErrInvalidObjectKey
	}
	if req.UploadID == "" {
		return nil, validationf("invalid upload_id")
	}
	if len(req.Parts) == 0 {
		return nil, validationf("parts must not be empty")
	}
	for _, p := range req.Parts {
		if p.PartNumber <= 0 {
			return nil, validationf("invalid part_number %d", p.PartNumber)
		}
	}
	tagIDs, err := normalizeTagIDs(req.TagIDs)
	if err != nil {
		return nil, err
	}
	album, err := s.requireAlbum(ctx, req.OwnerID, req.AlbumID)
	if err != nil {
		return nil, err
	}
	if !HasKeyPrefix(req.ObjectKey, KeyPrefix(req.OwnerID, album.ID)) {
		return nil, ErrInvalidObjectKey
	}

	if err := s.direct.CompleteMultipart(ctx, req.ObjectKey, req.UploadID, req.Parts); err != nil {
		return nil, err
	}
	photo, err := s.createPhoto(ctx, album, req.OwnerID, req.ObjectKey, req.Title, tagIDs)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Status: "completed", Photo: photo}, nil
}
