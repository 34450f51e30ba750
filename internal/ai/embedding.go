package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Encoder turns images and texts into unit-length embeddings.
type Encoder interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
	EncodeTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelInfo describes a loaded embedding model.
type ModelInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// EmbeddingBackend is the inference engine behind EmbeddingService.
type EmbeddingBackend interface {
	LoadModel(ctx context.Context, name, pretrained string) (ModelInfo, error)
	EmbedImage(ctx context.Context, model string, image []byte) ([]float32, error)
	EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// EmbeddingService loads its model on first use and is safe for concurrent
// use afterwards. The lock only guards initialisation.
type EmbeddingService struct {
	backend    EmbeddingBackend
	modelName  string
	pretrained string
	dimension  int

	mu    sync.Mutex
	model atomic.Pointer[ModelInfo]

	textCache sync.Map // cache key -> [][]float32
}

var _ Encoder = (*EmbeddingService)(nil)

// NewEmbeddingService does not contact the backend. dimension 0 accepts
// whatever the model reports.
func NewEmbeddingService(backend EmbeddingBackend, modelName, pretrained string, dimension int) *EmbeddingService {
	return &EmbeddingService{
		backend:    backend,
		modelName:  modelName,
		pretrained: pretrained,
		dimension:  dimension,
	}
}

func (s *EmbeddingService) ensureModel(ctx context.Context) (*ModelInfo, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.model.Load(); m != nil {
		return m, nil
	}

	if s.backend == nil {
		return nil, fmt.Errorf("%w: no embedding backend", ErrMissingDependency)
	}
	info, err := s.backend.LoadModel(ctx, s.modelName, s.pretrained)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s/%s: %v", ErrMissingDependency, s.modelName, s.pretrained, err)
	}
	if info.Dimension <= 0 {
		return nil, fmt.Errorf("model %s reported dimension %d", s.modelName, info.Dimension)
	}
	if s.dimension > 0 && info.Dimension != s.dimension {
		return nil, fmt.Errorf("model %s has dimension %d, configured %d", s.modelName, info.Dimension, s.dimension)
	}
	s.model.Store(&info)
	return &info, nil
}

// Dimension loads the model if needed and returns its vector length.
func (s *EmbeddingService) Dimension(ctx context.Context) (int, error) {
	m, err := s.ensureModel(ctx)
	if err != nil {
		return 0, err
	}
	return m.Dimension, nil
}

// EncodeImage returns the L2-normalised embedding of image.
func (s *EmbeddingService) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	m, err := s.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.backend.EmbedImage(ctx, m.Name, image)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if len(v) != m.Dimension {
		return nil, fmt.Errorf("image embedding has %d dims, want %d", len(v), m.Dimension)
	}
	return Normalize(v), nil
}

// EncodeTexts returns one normalised embedding per text. Results are cached
// for the lifetime of the service by the exact ordered input; callers must
// not modify the returned slices.
func (s *EmbeddingService) EncodeTexts(ctx context.Context, texts []string) ([][]float32, error) {
	key := textsKey(texts)
	if cached, ok := s.textCache.Load(key); ok {
		return cached.([][]float32), nil
	}

	m, err := s.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.backend.EmbedTexts(ctx, m.Name, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode texts: %w", err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("got %d text embeddings for %d texts", len(raw), len(texts))
	}
	vectors := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != m.Dimension {
			return nil, fmt.Errorf("text embedding %d has %d dims, want %d", i, len(v), m.Dimension)
		}
		vectors[i] = Normalize(v)
	}

	actual, _ := s.textCache.LoadOrStore(key, vectors)
	return actual.([][]float32), nil
}

// textsKey length-prefixes each text so distinct tuples never collide.
func textsKey(texts []string) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)
	}
	return b.String()
}
