package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gallery-backend/internal/ai"
	"gallery-backend/internal/metadata"
	"gallery-backend/internal/models"
	"gallery-backend/internal/storage"
	"gallery-backend/internal/store"
	"gallery-backend/pkg/logger"
)

// PhotoStore is the persistence the jobs need. Every write is scoped to the
// calling job's own columns.
type PhotoStore interface {
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
	SetThumbnail(ctx context.Context, photoID int64, key string) error
	UpdateMetadata(ctx context.Context, photoID int64, u metadata.Updates) error
	EnsureLabels(ctx context.Context, lang string, names []string) ([]models.AiLabel, error)
	SaveEmbedding(ctx context.Context, photoID int64, vector []byte, labelIDs []int64) error
	SaveFaceGroups(ctx context.Context, photoID, ownerID int64, faces int) ([]int64, error)
}

// CacheInvalidator drops cached listings after a photo changes.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type Options struct {
	// Location interprets naive EXIF timestamps.
	Location      *time.Location
	LabelLanguage string
	LabelTopK     int
	FaceModel     string
	FaceTolerance float64
}

func (o *Options) setDefaults() {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.LabelLanguage == "" {
		o.LabelLanguage = ai.DefaultLanguage
	}
	if o.LabelTopK <= 0 {
		o.LabelTopK = 5
	}
	if o.FaceModel == "" {
		o.FaceModel = "hog"
	}
	if o.FaceTolerance == 0 {
		o.FaceTolerance = 0.48
	}
}

// Processor runs the four post-upload jobs. Each job loads the photo on its
// own and may run concurrently with its siblings.
type Processor struct {
	store   PhotoStore
	blobs   storage.BlobStore
	encoder ai.Encoder
	faces   ai.FaceDetector
	cache   CacheInvalidator
	opts    Options
	log     *slog.Logger
}

// NewProcessor wires the jobs. cache may be nil.
func NewProcessor(st PhotoStore, blobs storage.BlobStore, encoder ai.Encoder, faces ai.FaceDetector, cache CacheInvalidator, opts Options) *Processor {
	opts.setDefaults()
	return &Processor{
		store:   st,
		blobs:   blobs,
		encoder: encoder,
		faces:   faces,
		cache:   cache,
		opts:    opts,
		log:     logger.Component("worker"),
	}
}

// Run executes the job named by msg. Per-message overrides replace the
// configured defaults.
func (p *Processor) Run(ctx context.Context, msg models.TaskMessage) Outcome {
	switch msg.Job {
	case models.JobThumbnail:
		return p.GenerateThumbnail(ctx, msg.PhotoID)
	case models.JobExif:
		return p.ExtractExif(ctx, msg.PhotoID)
	case models.JobLabels:
		lang, topK := p.opts.LabelLanguage, p.opts.LabelTopK
		if msg.Language != "" {
			lang = msg.Language
		}
		if msg.TopK > 0 {
			topK = msg.TopK
		}
		return p.ClipVectorAndLabels(ctx, msg.PhotoID, lang, topK)
	case models.JobFaces:
		tolerance := p.opts.FaceTolerance
		if msg.Tolerance != nil {
			tolerance = *msg.Tolerance
		}
		return p.FaceEmbeddingsAndGroup(ctx, msg.PhotoID, tolerance)
	}
	return Failed(fmt.Errorf("unknown job %q", msg.Job))
}

// loadPhoto returns the photo, or the outcome to report if it can't be loaded.
func (p *Processor) loadPhoto(ctx context.Context, photoID int64) (*models.Photo, *Outcome) {
	photo, err := p.store.GetPhoto(ctx, photoID)
	if err == nil {
		return photo, nil
	}
	var out Outcome
	if errors.Is(err, store.ErrNotFound) {
		out = Missing("photo")
	} else {
		out = p.fail(photoID, "failed to load photo", err)
	}
	return nil, &out
}

func (p *Processor) fail(photoID int64, msg string, err error) Outcome {
	p.log.Error(msg, "photo_id", photoID, "error", err)
	return Failed(err)
}

func (p *Processor) invalidate(ctx context.Context, photo *models.Photo) {
	if p.cache == nil {
		return
	}
	key := models.AlbumPhotosCacheKey(photo.AlbumID, photo.OwnerID)
	if err := p.cache.Delete(ctx, key); err != nil {
		p.log.Warn("failed to invalidate cache", "key", key, "error", err)
	}
}
