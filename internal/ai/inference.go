package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPBackend talks to the ML inference server. It implements both
// EmbeddingBackend and FaceBackend. An empty base URL means inference is
// not installed in this deployment.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

var (
	_ EmbeddingBackend = (*HTTPBackend)(nil)
	_ FaceBackend      = (*HTTPBackend)(nil)
)

func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) available() error {
	if b.baseURL == "" {
		return fmt.Errorf("%w: ML_URL is not set", ErrMissingDependency)
	}
	return nil
}

func (b *HTTPBackend) LoadModel(ctx context.Context, name, pretrained string) (ModelInfo, error) {
	var info ModelInfo
	if err := b.available(); err != nil {
		return info, err
	}
	endpoint := fmt.Sprintf("%s/models/%s?pretrained=%s", b.baseURL, url.PathEscape(name), url.QueryEscape(pretrained))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return info, err
	}
	if err := b.do(req, &info); err != nil {
		return info, err
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}

func (b *HTTPBackend) EmbedImage(ctx context.Context, model string, image []byte) ([]float32, error) {
	req, err := b.formRequest(ctx, "/embed/image", image, map[string]string{"model": model})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Vector []float32 `json:"vector"`
	}
	if err := b.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Vector, nil
}

func (b *HTTPBackend) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{"model": model, "texts": texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embed/text", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var resp struct {
		Vectors [][]float32 `json:"vectors"`
	}
	if err := b.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Vectors, nil
}

func (b *HTTPBackend) LoadFaceModel(ctx context.Context) error {
	if err := b.available(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/faces/health", nil)
	if err != nil {
		return err
	}
	return b.do(req, nil)
}

func (b *HTTPBackend) FaceLocations(ctx context.Context, image []byte, model string) ([]Box, error) {
	req, err := b.formRequest(ctx, "/faces/locations", image, map[string]string{"model": model})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Boxes []Box `json:"boxes"`
	}
	if err := b.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Boxes, nil
}

func (b *HTTPBackend) FaceEncodings(ctx context.Context, image []byte, boxes []Box) ([][]float32, error) {
	encoded, err := json.Marshal(boxes)
	if err != nil {
		return nil, err
	}
	req, err := b.formRequest(ctx, "/faces/encodings", image, map[string]string{"boxes": string(encoded)})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Encodings [][]float32 `json:"encodings"`
	}
	if err := b.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Encodings, nil
}

// formRequest builds a multipart POST carrying the image plus text fields.
func (b *HTTPBackend) formRequest(ctx context.Context, path string, image []byte, fields map[string]string) (*http.Request, error) {
	if err := b.available(); err != nil {
		return nil, err
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (b *HTTPBackend) do(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference request %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference request %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}
