package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const thumbnailSize = 300

// maxThumbnailPixels bounds the decoded source size. The header is checked
// before any pixel buffer is allocated.
const maxThumbnailPixels = 50_000_000

var errImageTooLarge = errors.New("image too large")

// ThumbnailKey places the thumbnail beside src as <stem>_thumb.jpg.
func ThumbnailKey(src string) string {
	base := path.Base(src)
	stem := strings.TrimSuffix(base, path.Ext(base))
	dir := path.Dir(src)
	if dir == "." {
		return stem + "_thumb.jpg"
	}
	return dir + "/" + stem + "_thumb.jpg"
}

// makeThumbnail applies the EXIF orientation and shrinks the image to fit
// in a 300x300 box. Smaller images are not enlarged.
func makeThumbnail(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var thumb image.Image = img
	b := img.Bounds()
	if b.Dx() > thumbnailSize || b.Dy() > thumbnailSize {
		thumb = imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Processor) GenerateThumbnail(ctx context.Context, photoID int64) Outcome {
	photo, out := p.loadPhoto(ctx, photoID)
	if out != nil {
		return *out
	}
	if !photo.HasImage() {
		return Skip("no_image")
	}
	if photo.HasThumbnail() {
		return Skip("has_thumbnail")
	}

	data, err := p.blobs.Get(ctx, photo.Image)
	if err != nil {
		return p.fail(photoID, "failed to fetch image", err)
	}
	thumb, err := makeThumbnail(data)
	if err != nil {
		return p.fail(photoID, "thumbnail generation failed", err)
	}

	key := ThumbnailKey(photo.Image)
	if err := p.blobs.Put(ctx, key, thumb, "image/jpeg"); err != nil {
		return p.fail(photoID, "failed to store thumbnail", err)
	}
	if err := p.store.SetThumbnail(ctx, photoID, key); err != nil {
		return p.fail(photoID, "failed to save thumbnail", err)
	}
	p.invalidate(ctx, photo)

	p.log.Info("thumbnail generated", "photo_id", photoID, "key", key)
	return OK()
}
