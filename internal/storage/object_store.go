package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectInfo describes one stored object within a listing.
type ObjectInfo struct {
	Path string
	Size int64
}

// ObjectStore provides access to bucket-scoped object storage. Uploads
// overwrite silently; deletes of absent paths are not errors; signed URL
// generation fails when the object is absent.
type ObjectStore interface {
	Upload(ctx context.Context, bucket string, r io.Reader, size int64, path, contentType string) error
	PublicURL(bucket, path string) string
	SignedURL(ctx context.Context, bucket, path string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, bucket string, paths []string) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client   *minio.Client
	endpoint string
	secure   bool
}

// NewMinioStore connects to MinIO and ensures the default bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, defaultBucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, defaultBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, defaultBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, endpoint: endpoint, secure: useSSL}, nil
}

// Upload stores an object, overwriting any existing one at the same path.
func (m *MinioStore) Upload(ctx context.Context, bucket string, r io.Reader, size int64, path, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, bucket, path, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PublicURL returns the unsigned, non-expiring object URL.
func (m *MinioStore) PublicURL(bucket, path string) string {
	scheme := "http"
	if m.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.endpoint, bucket, path)
}

// SignedURL generates a pre-signed GET URL. It fails when the object does
// not exist so that stale metadata rows surface instead of returning URLs
// that 404 later.
func (m *MinioStore) SignedURL(ctx context.Context, bucket, path string, expiry time.Duration) (string, error) {
	if _, err := m.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{}); err != nil {
		return "", fmt.Errorf("stat object: %w", err)
	}
	url, err := m.client.PresignedGetObject(ctx, bucket, path, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return url.String(), nil
}

// Delete removes objects. Paths that do not exist are silently ignored,
// matching S3 delete semantics.
func (m *MinioStore) Delete(ctx context.Context, bucket string, paths []string) error {
	for _, path := range paths {
		if err := m.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("delete object %s: %w", path, err)
		}
	}
	return nil
}

// List returns objects under a prefix.
func (m *MinioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		out = append(out, ObjectInfo{Path: obj.Key, Size: obj.Size})
	}
	return out, nil
}
