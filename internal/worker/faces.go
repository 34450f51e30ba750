package worker

import (
	"context"
	"errors"

	"gallery-backend/internal/store"
)

// FaceEmbeddingsAndGroup detects faces and assigns each one to a group.
// Every face currently opens a new group of its own; tolerance is carried
// for the future matching step and not applied.
func (p *Processor) FaceEmbeddingsAndGroup(ctx context.Context, photoID int64, tolerance float64) Outcome {
	photo, out := p.loadPhoto(ctx, photoID)
	if out != nil {
		return *out
	}
	if !photo.HasImage() {
		return Skip("no_image")
	}
	if photo.FaceDone {
		return Skip("face_done")
	}

	data, err := p.blobs.Get(ctx, photo.Image)
	if err != nil {
		return p.fail(photoID, "failed to fetch image", err)
	}
	boxes, err := p.faces.FaceLocations(ctx, data, p.opts.FaceModel)
	if err != nil {
		return p.fail(photoID, "face detection failed", err)
	}

	if len(boxes) == 0 {
		if _, err := p.store.SaveFaceGroups(ctx, photoID, photo.OwnerID, 0); err != nil {
			if errors.Is(err, store.ErrAlreadyDone) {
				return Skip("face_done")
			}
			return p.fail(photoID, "failed to save face result", err)
		}
		p.invalidate(ctx, photo)
		return Skip("no_face")
	}

	encodings, err := p.faces.FaceEncodings(ctx, data, boxes)
	if err != nil {
		return p.fail(photoID, "face encoding failed", err)
	}

	groupIDs, err := p.store.SaveFaceGroups(ctx, photoID, photo.OwnerID, len(encodings))
	if errors.Is(err, store.ErrAlreadyDone) {
		return Skip("face_done")
	} else if err != nil {
		return p.fail(photoID, "failed to save face groups", err)
	}
	p.invalidate(ctx, photo)

	p.log.Info("faces grouped", "photo_id", photoID, "faces", len(groupIDs), "tolerance", tolerance)
	return OK()
}
