package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBytesRoundTrip(t *testing.T) {
	v := []float32{0, 1, -1, 0.5, float32(math.Pi), math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(-1))}

	b := VectorToBytes(v)
	require.Len(t, b, 4*len(v))

	got, err := BytesToVector(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
	assert.Equal(t, b, VectorToBytes(got))
}

func TestVectorBytesLayout(t *testing.T) {
	// 1.0 is 0x3f800000, little endian.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, VectorToBytes([]float32{1}))
}

func TestBytesToVectorRejectsBadLength(t *testing.T) {
	_, err := BytesToVector([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = BytesToVectorDim(make([]byte, 8), 3)
	assert.Error(t, err)

	v, err := BytesToVectorDim(make([]byte, 12), 3)
	require.NoError(t, err)
	assert.Len(t, v, 3)
}

func TestNormalize(t *testing.T) {
	n := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestDotDimensionMismatch(t *testing.T) {
	_, err := Dot([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}
