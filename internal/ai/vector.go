package ai

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMissingDependency is returned on first use of an inference service
// whose backend is absent or could not be loaded.
var ErrMissingDependency = errors.New("missing inference dependency")

// VectorToBytes encodes v as little-endian float32, 4 bytes per element.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// BytesToVector decodes the layout written by VectorToBytes.
func BytesToVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// BytesToVectorDim is BytesToVector with an expected dimension check.
func BytesToVectorDim(b []byte, dim int) ([]float32, error) {
	if len(b) != 4*dim {
		return nil, fmt.Errorf("vector blob has %d bytes, want %d for dimension %d", len(b), 4*dim, dim)
	}
	return BytesToVector(b)
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

// Dot is the cosine similarity of two unit vectors.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s, nil
}
