package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gallery-backend/internal/config"
	"gallery-backend/internal/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	DefaultPutTTL  = 300 * time.Second
	DefaultPartTTL = 600 * time.Second

	aclHeader  = "X-Amz-Acl"
	aclPrivate = "private"
)

// objectAPI is the subset of *minio.Client used here.
type objectAPI interface {
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// multipartAPI is the subset of *minio.Core used for multipart uploads.
type multipartAPI interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Client is the S3 storage gateway. A Client built from incomplete or
// non-S3 settings is still usable as a value, but every operation fails
// with storage.ErrNotConfigured without touching the network.
type Client struct {
	bucket    string
	api       objectAPI
	multipart multipartAPI
	notReady  error
}

var _ storage.BlobStore = (*Client)(nil)

// NewClient builds a gateway for cfg. It returns an error only when the
// settings look valid but the SDK client cannot be constructed.
func NewClient(cfg config.StorageConfig) (*Client, error) {
	if reason := checkSettings(cfg); reason != "" {
		return &Client{notReady: fmt.Errorf("%w: %s", storage.ErrNotConfigured, reason)}, nil
	}

	creds, err := staticCredentials(cfg)
	if err != nil {
		return &Client{notReady: err}, nil
	}

	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		bucket:    cfg.Bucket,
		api:       core.Client,
		multipart: core,
	}, nil
}

func checkSettings(cfg config.StorageConfig) string {
	switch {
	case cfg.Backend != config.BackendS3:
		return fmt.Sprintf("active backend is %q, direct uploads need %q", cfg.Backend, config.BackendS3)
	case cfg.Bucket == "":
		return "S3_BUCKET is not set"
	case cfg.Endpoint == "":
		return "S3_ENDPOINT is not set"
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return "S3 credentials are not set"
	}
	return ""
}

func staticCredentials(cfg config.StorageConfig) (*credentials.Credentials, error) {
	switch strings.ToLower(cfg.SignatureVersion) {
	case "", "s3v4", "v4":
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""), nil
	case "s3", "s3v2", "v2":
		return credentials.NewStaticV2(cfg.AccessKey, cfg.SecretKey, ""), nil
	}
	return nil, fmt.Errorf("%w: unsupported signature version %q", storage.ErrNotConfigured, cfg.SignatureVersion)
}

// Ready returns storage.ErrNotConfigured (wrapped) if the gateway cannot be used.
func (c *Client) Ready() error {
	if c == nil {
		return storage.ErrNotConfigured
	}
	return c.notReady
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	if err := c.Ready(); err != nil {
		return err
	}
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if exists {
		slog.Info("bucket already exists", "bucket", c.bucket)
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	slog.Info("created bucket", "bucket", c.bucket)
	return nil
}

// PresignPut returns a single-shot private upload URL for key.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultPutTTL
	}
	headers := http.Header{}
	headers.Set("Content-Type", contentType)
	headers.Set(aclHeader, aclPrivate)

	u, err := c.api.PresignHeader(ctx, http.MethodPut, c.bucket, key, ttl, nil, headers)
	if err != nil {
		return "", fmt.Errorf("failed to presign put: %w", err)
	}
	return u.String(), nil
}

// UploadHeaders are the headers a client must send with a PresignPut URL.
func (c *Client) UploadHeaders(contentType string) map[string]string {
	return map[string]string{
		"Content-Type": contentType,
		aclHeader:      aclPrivate,
	}
}

// InitiateMultipart starts a multipart upload and returns its upload id.
func (c *Client) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	uploadID, err := c.multipart.NewMultipartUpload(ctx, c.bucket, key, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{aclHeader: aclPrivate},
	})
	if err != nil {
		return "", fmt.Errorf("failed to initiate multipart upload: %w", err)
	}
	return uploadID, nil
}

// PresignPart returns an upload URL for one part. partNumber starts at 1.
func (c *Client) PresignPart(ctx context.Context, key, uploadID string, partNumber int, ttl time.Duration) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	if partNumber < 1 {
		return "", fmt.Errorf("invalid part number %d", partNumber)
	}
	if ttl <= 0 {
		ttl = DefaultPartTTL
	}
	params := url.Values{}
	params.Set("partNumber", strconv.Itoa(partNumber))
	params.Set("uploadId", uploadID)

	u, err := c.api.PresignHeader(ctx, http.MethodPut, c.bucket, key, ttl, params, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign part: %w", err)
	}
	return u.String(), nil
}

// CompleteMultipart submits parts sorted by part number. Duplicates are
// passed through unchanged.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) error {
	if err := c.Ready(); err != nil {
		return err
	}
	_, err := c.multipart.CompleteMultipartUpload(ctx, c.bucket, key, uploadID, sortedParts(parts), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

func sortedParts(parts []storage.CompletedPart) []minio.CompletePart {
	out := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		out = append(out, minio.CompletePart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out
}

// Get downloads the whole object.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data under key with a private ACL.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := c.Ready(); err != nil {
		return err
	}
	_, err := c.api.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{aclHeader: aclPrivate},
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	slog.Debug("uploaded object", "bucket", c.bucket, "key", key)
	return nil
}
