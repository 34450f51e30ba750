package ai

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Box is a face bounding box as (top, right, bottom, left) pixels.
type Box [4]int

func (b Box) Top() int    { return b[0] }
func (b Box) Right() int  { return b[1] }
func (b Box) Bottom() int { return b[2] }
func (b Box) Left() int   { return b[3] }

// FaceDetector finds faces and computes one fixed-length encoding per face.
type FaceDetector interface {
	FaceLocations(ctx context.Context, image []byte, model string) ([]Box, error)
	FaceEncodings(ctx context.Context, image []byte, boxes []Box) ([][]float32, error)
}

// FaceBackend is the inference engine behind FaceService.
type FaceBackend interface {
	LoadFaceModel(ctx context.Context) error
	FaceLocations(ctx context.Context, image []byte, model string) ([]Box, error)
	FaceEncodings(ctx context.Context, image []byte, boxes []Box) ([][]float32, error)
}

// FaceService initialises its backend once, on first use.
type FaceService struct {
	backend FaceBackend
	mu      sync.Mutex
	ready   atomic.Bool
}

var _ FaceDetector = (*FaceService)(nil)

func NewFaceService(backend FaceBackend) *FaceService {
	return &FaceService{backend: backend}
}

func (s *FaceService) ensure(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready.Load() {
		return nil
	}
	if s.backend == nil {
		return fmt.Errorf("%w: no face backend", ErrMissingDependency)
	}
	if err := s.backend.LoadFaceModel(ctx); err != nil {
		return fmt.Errorf("%w: face model: %v", ErrMissingDependency, err)
	}
	s.ready.Store(true)
	return nil
}

func (s *FaceService) FaceLocations(ctx context.Context, image []byte, model string) ([]Box, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	boxes, err := s.backend.FaceLocations(ctx, image, model)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return boxes, nil
}

func (s *FaceService) FaceEncodings(ctx context.Context, image []byte, boxes []Box) ([][]float32, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	encodings, err := s.backend.FaceEncodings(ctx, image, boxes)
	if err != nil {
		return nil, fmt.Errorf("face encoding failed: %w", err)
	}
	if len(encodings) != len(boxes) {
		return nil, fmt.Errorf("got %d face encodings for %d faces", len(encodings), len(boxes))
	}
	return encodings, nil
}
