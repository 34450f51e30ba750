package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"gallery-backend/internal/ai"
	"gallery-backend/internal/metadata"
	"gallery-backend/internal/models"
	"gallery-backend/internal/storage"
	"gallery-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	photos      map[int64]*models.Photo
	labels      map[string]models.AiLabel
	photoLabels map[int64][]int64
	groups      map[int64]int
	nextID      int64
	getErr      error
	staleGet    *models.Photo
	metaCalls   int
}

func newFakeStore(photos ...*models.Photo) *fakeStore {
	s := &fakeStore{
		photos:      map[int64]*models.Photo{},
		labels:      map[string]models.AiLabel{},
		photoLabels: map[int64][]int64{},
		groups:      map[int64]int{},
	}
	for _, p := range photos {
		s.photos[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.staleGet != nil {
		cp := *s.staleGet
		return &cp, nil
	}
	p, ok := s.photos[id]
	if !ok {
		return nil, fmt.Errorf("%w: photo %d", store.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SetThumbnail(ctx context.Context, photoID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[photoID].Thumbnail = &key
	return nil
}

func (s *fakeStore) UpdateMetadata(ctx context.Context, photoID int64, u metadata.Updates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metaCalls++
	p := s.photos[photoID]
	p.Width, p.Height = u.Width, u.Height
	return nil
}

func (s *fakeStore) EnsureLabels(ctx context.Context, lang string, names []string) ([]models.AiLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AiLabel, 0, len(names))
	for _, name := range names {
		key := lang + "/" + name
		l, ok := s.labels[key]
		if !ok {
			s.nextID++
			l = models.AiLabel{ID: 100 + s.nextID, Name: name, Lang: lang}
			s.labels[key] = l
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) SaveEmbedding(ctx context.Context, photoID int64, vector []byte, labelIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.photos[photoID]
	p.ClipVector = vector
	p.VectorDone = true
	if len(labelIDs) > 0 {
		s.photoLabels[photoID] = append(s.photoLabels[photoID], labelIDs...)
		p.AIDone = true
	}
	return nil
}

func (s *fakeStore) SaveFaceGroups(ctx context.Context, photoID, ownerID int64, faces int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photos[photoID].FaceDone {
		return nil, store.ErrAlreadyDone
	}
	ids := make([]int64, 0, faces)
	for i := 0; i < faces; i++ {
		id := int64(len(s.groups) + 1)
		s.groups[id]++
		ids = append(ids, id)
	}
	p := s.photos[photoID]
	p.FaceGroupIDs = ids
	p.FaceDone = true
	return ids, nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (m *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return b, nil
}

func (m *memBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.data[key] = data
	return nil
}

type fakeEncoder struct {
	image []float32
	texts map[string][]float32
	err   error
}

func (f *fakeEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func (f *fakeEncoder) EncodeTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.texts[t]
		if !ok {
			v = make([]float32, len(f.image))
		}
		out[i] = v
	}
	return out, nil
}

type fakeFaces struct {
	boxes []ai.Box
	err   error
}

func (f *fakeFaces) FaceLocations(ctx context.Context, image []byte, model string) ([]ai.Box, error) {
	return f.boxes, f.err
}

func (f *fakeFaces) FaceEncodings(ctx context.Context, image []byte, boxes []ai.Box) ([][]float32, error) {
	out := make([][]float32, len(boxes))
	for i := range out {
		out[i] = make([]float32, 128)
	}
	return out, nil
}

type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
	return nil
}

const srcKey = "photos/1/2/20240101/abc_beach.jpg"

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type fixture struct {
	store   *fakeStore
	blobs   *memBlobs
	encoder *fakeEncoder
	faces   *fakeFaces
	cache   *fakeCache
	proc    *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newFakeStore(&models.Photo{ID: 1, OwnerID: 1, AlbumID: 2, Image: srcKey}),
		blobs:   newMemBlobs(),
		encoder: &fakeEncoder{},
		faces:   &fakeFaces{},
		cache:   &fakeCache{},
	}
	f.blobs.data[srcKey] = encodeJPEG(t, 600, 400)
	f.proc = NewProcessor(f.store, f.blobs, f.encoder, f.faces, f.cache, Options{})
	return f
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "photos/1/2/20240101/abc_beach_thumb.jpg", ThumbnailKey(srcKey))
	assert.Equal(t, "pic_thumb.jpg", ThumbnailKey("pic.png"))
	assert.Equal(t, "a/noext_thumb.jpg", ThumbnailKey("a/noext"))
}

func TestGenerateThumbnail(t *testing.T) {
	f := newFixture(t)

	out := f.proc.GenerateThumbnail(context.Background(), 1)
	require.Equal(t, "ok", out.Render())

	thumbKey := "photos/1/2/20240101/abc_beach_thumb.jpg"
	data, ok := f.blobs.data[thumbKey]
	require.True(t, ok)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	require.NotNil(t, f.store.photos[1].Thumbnail)
	assert.Equal(t, thumbKey, *f.store.photos[1].Thumbnail)
	assert.Equal(t, []string{"album_photos:2:1"}, f.cache.deleted)
}

func TestGenerateThumbnailIsIdempotent(t *testing.T) {
	f := newFixture(t)
	existing := "photos/1/2/existing_thumb.jpg"
	f.store.photos[1].Thumbnail = &existing

	for i := 0; i < 2; i++ {
		out := f.proc.GenerateThumbnail(context.Background(), 1)
		assert.Equal(t, "skip:has_thumbnail", out.Render())
	}
	assert.Equal(t, existing, *f.store.photos[1].Thumbnail)
	assert.Zero(t, f.blobs.puts)
}

func TestGenerateThumbnailDoesNotUpscale(t *testing.T) {
	f := newFixture(t)
	f.blobs.data[srcKey] = encodeJPEG(t, 120, 80)

	require.Equal(t, "ok", f.proc.GenerateThumbnail(context.Background(), 1).Render())

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.blobs.data[ThumbnailKey(srcKey)]))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestGenerateThumbnailDecodeFailure(t *testing.T) {
	f := newFixture(t)
	f.blobs.data[srcKey] = []byte("not an image")

	out := f.proc.GenerateThumbnail(context.Background(), 1)

	assert.Equal(t, StatusError, out.Status)
	assert.Nil(t, f.store.photos[1].Thumbnail)
	assert.Empty(t, f.cache.deleted)
}

// pngWithSize encodes a small PNG and rewrites its IHDR to claim w x h.
func pngWithSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestGenerateThumbnailRejectsHugeDimensions(t *testing.T) {
	f := newFixture(t)
	f.blobs.data[srcKey] = pngWithSize(t, 20000, 20000)

	out := f.proc.GenerateThumbnail(context.Background(), 1)

	assert.Equal(t, StatusError, out.Status)
	assert.Contains(t, out.Render(), "image too large: 20000x20000")
	assert.Nil(t, f.store.photos[1].Thumbnail)
	assert.Zero(t, f.blobs.puts)
}

func TestMakeThumbnailPixelCap(t *testing.T) {
	_, err := makeThumbnail(pngWithSize(t, 1, 1))
	require.NoError(t, err)

	_, err = makeThumbnail(pngWithSize(t, 10000, 5001))
	assert.ErrorIs(t, err, errImageTooLarge)
}

func TestJobsReportMissingPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, job := range models.PostUploadJobs {
		out := f.proc.Run(ctx, models.TaskMessage{Job: job, PhotoID: 99})
		assert.Equal(t, "missing:photo", out.Render(), job)
	}
}

func TestJobsSkipWithoutImage(t *testing.T) {
	f := newFixture(t)
	f.store.photos[1].Image = ""
	ctx := context.Background()

	assert.Equal(t, "skip:no_image", f.proc.GenerateThumbnail(ctx, 1).Render())
	assert.Equal(t, "skip:no_updates", f.proc.ExtractExif(ctx, 1).Render())
	assert.Equal(t, "skip:no_image", f.proc.ClipVectorAndLabels(ctx, 1, "zh", 5).Render())
	assert.Equal(t, "skip:no_image", f.proc.FaceEmbeddingsAndGroup(ctx, 1, 0.48).Render())
}

func TestLoadFailureIsError(t *testing.T) {
	f := newFixture(t)
	f.store.getErr = errors.New("connection refused")

	out := f.proc.GenerateThumbnail(context.Background(), 1)
	assert.Equal(t, "err:connection refused", out.Render())
}

func TestExtractExif(t *testing.T) {
	f := newFixture(t)
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	f.blobs.data[srcKey] = buf.Bytes()

	out := f.proc.ExtractExif(context.Background(), 1)

	require.Equal(t, "ok", out.Render())
	assert.Equal(t, 64, *f.store.photos[1].Width)
	assert.Equal(t, 48, *f.store.photos[1].Height)
}

func TestExtractExifUndecodable(t *testing.T) {
	f := newFixture(t)
	f.blobs.data[srcKey] = []byte("garbage")

	out := f.proc.ExtractExif(context.Background(), 1)
	assert.Equal(t, StatusError, out.Status)
	assert.Zero(t, f.store.metaCalls)
}

func TestClipVectorAndLabels(t *testing.T) {
	ai.RegisterPreset(ai.LabelPreset{Key: "worker_test", Language: "wt", Labels: []string{"sea", "dog", "sky", "cat"}})

	f := newFixture(t)
	f.encoder.image = []float32{1, 0}
	f.encoder.texts = map[string][]float32{
		"sea": {0.6, 0.8},
		"dog": {0, 1},
		"sky": {0.6, 0.8},
		"cat": {1, 0},
	}

	out := f.proc.ClipVectorAndLabels(context.Background(), 1, "wt", 3)
	require.Equal(t, "ok", out.Render())

	photo := f.store.photos[1]
	assert.True(t, photo.VectorDone)
	assert.True(t, photo.AIDone)
	assert.Equal(t, ai.VectorToBytes([]float32{1, 0}), photo.ClipVector)

	ids := func(names ...string) []int64 {
		var out []int64
		for _, n := range names {
			out = append(out, f.store.labels["wt/"+n].ID)
		}
		return out
	}
	assert.Equal(t, ids("cat", "sea", "sky"), f.store.photoLabels[1])
}

func TestClipVectorAndLabelsZeroTopK(t *testing.T) {
	f := newFixture(t)
	f.encoder.image = []float32{1, 0}

	out := f.proc.ClipVectorAndLabels(context.Background(), 1, "zh", 0)
	require.Equal(t, "ok", out.Render())
	assert.True(t, f.store.photos[1].VectorDone)
	assert.False(t, f.store.photos[1].AIDone)
}

func TestClipVectorAndLabelsMissingDependency(t *testing.T) {
	f := newFixture(t)
	f.encoder.err = fmt.Errorf("%w: ML_URL is not set", ai.ErrMissingDependency)

	out := f.proc.ClipVectorAndLabels(context.Background(), 1, "zh", 5)

	assert.True(t, strings.HasPrefix(out.Render(), "err:deps:"), out.Render())
	assert.False(t, f.store.photos[1].VectorDone)
	assert.False(t, f.store.photos[1].AIDone)
}

func TestFacesNoFace(t *testing.T) {
	f := newFixture(t)

	out := f.proc.FaceEmbeddingsAndGroup(context.Background(), 1, 0.48)

	assert.Equal(t, "skip:no_face", out.Render())
	photo := f.store.photos[1]
	assert.True(t, photo.FaceDone)
	assert.NotNil(t, photo.FaceGroupIDs)
	assert.Empty(t, photo.FaceGroupIDs)
	assert.Empty(t, f.store.groups)
}

func TestFacesCreateOneGroupPerFace(t *testing.T) {
	f := newFixture(t)
	f.faces.boxes = []ai.Box{{0, 10, 10, 0}, {20, 40, 40, 20}}

	out := f.proc.FaceEmbeddingsAndGroup(context.Background(), 1, 0.48)

	require.Equal(t, "ok", out.Render())
	assert.Equal(t, []int64{1, 2}, f.store.photos[1].FaceGroupIDs)
	assert.True(t, f.store.photos[1].FaceDone)
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, f.store.groups)
}

func TestFacesRedeliveryKeepsFirstGroups(t *testing.T) {
	f := newFixture(t)
	f.faces.boxes = []ai.Box{{0, 10, 10, 0}, {20, 40, 40, 20}}
	ctx := context.Background()

	require.Equal(t, "ok", f.proc.FaceEmbeddingsAndGroup(ctx, 1, 0.48).Render())
	assert.Equal(t, "skip:face_done", f.proc.FaceEmbeddingsAndGroup(ctx, 1, 0.48).Render())

	assert.Equal(t, map[int64]int{1: 1, 2: 1}, f.store.groups)
	assert.Equal(t, []int64{1, 2}, f.store.photos[1].FaceGroupIDs)
}

func TestFacesConcurrentDuplicateIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.faces.boxes = []ai.Box{{0, 10, 10, 0}}
	// A sibling delivery finished after this one loaded the photo.
	f.store.photos[1].FaceDone = true
	f.store.photos[1].FaceGroupIDs = []int64{9}
	photo := *f.store.photos[1]
	photo.FaceDone = false
	f.store.staleGet = &photo

	out := f.proc.FaceEmbeddingsAndGroup(context.Background(), 1, 0.48)

	assert.Equal(t, "skip:face_done", out.Render())
	assert.Empty(t, f.store.groups)
	assert.Equal(t, []int64{9}, f.store.photos[1].FaceGroupIDs)
}

func TestFacesDetectorErrorLeavesFlagUnset(t *testing.T) {
	f := newFixture(t)
	f.faces.err = errors.New("detector crashed")

	out := f.proc.FaceEmbeddingsAndGroup(context.Background(), 1, 0.48)

	assert.Equal(t, "err:detector crashed", out.Render())
	assert.False(t, f.store.photos[1].FaceDone)
	assert.Nil(t, f.store.photos[1].FaceGroupIDs)
}

func TestRunUnknownJob(t *testing.T) {
	f := newFixture(t)
	out := f.proc.Run(context.Background(), models.TaskMessage{Job: "resize", PhotoID: 1})
	assert.Equal(t, StatusError, out.Status)
}

func TestOutcomeRender(t *testing.T) {
	assert.Equal(t, "ok", OK().Render())
	assert.Equal(t, "skip:no_face", Skip("no_face").Render())
	assert.Equal(t, "missing:photo", Missing("photo").Render())
	assert.Equal(t, "err:boom", Failed(errors.New("boom")).Render())
	assert.Equal(t, "err:deps:missing inference dependency: x",
		Failed(fmt.Errorf("%w: x", ai.ErrMissingDependency)).Render())
}
