package worker

import (
	"context"

	"gallery-backend/internal/metadata"
)

func (p *Processor) ExtractExif(ctx context.Context, photoID int64) Outcome {
	photo, out := p.loadPhoto(ctx, photoID)
	if out != nil {
		return *out
	}
	if !photo.HasImage() {
		return Skip("no_updates")
	}

	data, err := p.blobs.Get(ctx, photo.Image)
	if err != nil {
		return p.fail(photoID, "failed to fetch image", err)
	}
	updates, err := metadata.Read(data, p.opts.Location)
	if err != nil {
		return p.fail(photoID, "exif extraction failed", err)
	}
	if updates.Empty() {
		return Skip("no_updates")
	}

	if err := p.store.UpdateMetadata(ctx, photoID, updates); err != nil {
		return p.fail(photoID, "failed to save metadata", err)
	}
	p.invalidate(ctx, photo)

	p.log.Info("metadata extracted", "photo_id", photoID, "fields", updates.Fields())
	return OK()
}
