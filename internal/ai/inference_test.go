package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models/ViT-B-32", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "openai", r.URL.Query().Get("pretrained"))
		json.NewEncoder(w).Encode(ModelInfo{Name: "ViT-B-32", Dimension: 2})
	})
	mux.HandleFunc("/embed/image", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("image")
		assert.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{3, 4}})
	})
	mux.HandleFunc("/embed/text", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Texts []string `json:"texts"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		vectors := make([][]float32, len(body.Texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		json.NewEncoder(w).Encode(map[string]any{"vectors": vectors})
	})
	mux.HandleFunc("/faces/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/faces/locations", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hog", r.FormValue("model"))
		json.NewEncoder(w).Encode(map[string]any{"boxes": [][]int{{10, 50, 60, 5}}})
	})
	mux.HandleFunc("/faces/encodings", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		var boxes []Box
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("boxes")), &boxes))
		out := make([][]float32, len(boxes))
		for i := range out {
			out[i] = []float32{0.1, 0.2}
		}
		json.NewEncoder(w).Encode(map[string]any{"encodings": out})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPBackendEmbedding(t *testing.T) {
	srv := newInferenceServer(t)
	svc := NewEmbeddingService(NewHTTPBackend(srv.URL, 0), "ViT-B-32", "openai", 2)

	v, err := svc.EncodeImage(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	vs, err := svc.EncodeTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
}

func TestHTTPBackendFaces(t *testing.T) {
	srv := newInferenceServer(t)
	svc := NewFaceService(NewHTTPBackend(srv.URL, 0))

	boxes, err := svc.FaceLocations(context.Background(), []byte("jpeg"), "hog")
	require.NoError(t, err)
	require.Equal(t, []Box{{10, 50, 60, 5}}, boxes)

	enc, err := svc.FaceEncodings(context.Background(), []byte("jpeg"), boxes)
	require.NoError(t, err)
	assert.Len(t, enc, 1)
}

func TestHTTPBackendUnset(t *testing.T) {
	svc := NewEmbeddingService(NewHTTPBackend("", 0), "ViT-B-32", "openai", 512)
	_, err := svc.EncodeImage(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrMissingDependency)

	faces := NewFaceService(NewHTTPBackend("", 0))
	_, err = faces.FaceLocations(context.Background(), []byte("x"), "hog")
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestHTTPBackendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(NewHTTPBackend(srv.URL, 0), "nope", "openai", 0)
	_, err := svc.EncodeImage(context.Background(), []byte("x"))
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "model not found")
}
