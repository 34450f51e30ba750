package worker

import (
	"context"
	"fmt"

	"gallery-backend/internal/ai"
)

// ClipVectorAndLabels stores the image embedding and tags the photo with the
// topK closest labels of the language's vocabulary.
func (p *Processor) ClipVectorAndLabels(ctx context.Context, photoID int64, language string, topK int) Outcome {
	photo, out := p.loadPhoto(ctx, photoID)
	if out != nil {
		return *out
	}
	if !photo.HasImage() {
		return Skip("no_image")
	}

	data, err := p.blobs.Get(ctx, photo.Image)
	if err != nil {
		return p.fail(photoID, "failed to fetch image", err)
	}
	vector, err := p.encoder.EncodeImage(ctx, data)
	if err != nil {
		return p.fail(photoID, "image embedding failed", err)
	}

	lang, names := ai.Labels(language)
	labels, err := p.store.EnsureLabels(ctx, lang, names)
	if err != nil {
		return p.fail(photoID, "failed to ensure labels", err)
	}
	if len(labels) != len(names) {
		return p.fail(photoID, "failed to ensure labels", fmt.Errorf("got %d labels for %d names", len(labels), len(names)))
	}
	textVectors, err := p.encoder.EncodeTexts(ctx, names)
	if err != nil {
		return p.fail(photoID, "label embedding failed", err)
	}
	top, err := ai.TopK(vector, textVectors, topK)
	if err != nil {
		return p.fail(photoID, "label ranking failed", err)
	}

	labelIDs := make([]int64, 0, len(top))
	for _, i := range top {
		labelIDs = append(labelIDs, labels[i].ID)
	}
	if err := p.store.SaveEmbedding(ctx, photoID, ai.VectorToBytes(vector), labelIDs); err != nil {
		return p.fail(photoID, "failed to save embedding", err)
	}
	p.invalidate(ctx, photo)

	p.log.Info("embedding stored", "photo_id", photoID, "lang", lang, "labels", len(labelIDs))
	return OK()
}
