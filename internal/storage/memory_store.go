package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryObjectStore keeps objects in-process for tests. It mirrors the
// ObjectStore contract: overwriting uploads, signed URLs failing on absent
// objects, deletes ignoring absent paths.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte // key: bucket + "/" + path

	// FailUploads makes every Upload fail, for partial-failure tests.
	FailUploads bool
	// FailDeletes makes every Delete fail.
	FailDeletes bool
}

// NewMemoryObjectStore initializes an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}

// Upload stores object bytes, overwriting any existing object.
func (m *MemoryObjectStore) Upload(_ context.Context, bucket string, r io.Reader, _ int64, path, _ string) error {
	if m.FailUploads {
		return fmt.Errorf("upload %s: storage unavailable", path)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[objectKey(bucket, path)] = buf.Bytes()
	m.mu.Unlock()
	return nil
}

// PublicURL returns a stable fake URL.
func (m *MemoryObjectStore) PublicURL(bucket, path string) string {
	return "memory://" + objectKey(bucket, path)
}

// SignedURL returns a fake signed URL, failing when the object is absent.
func (m *MemoryObjectStore) SignedURL(_ context.Context, bucket, path string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[objectKey(bucket, path)]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("sign %s: object not found", path)
	}
	return fmt.Sprintf("memory://%s?expires=%d", objectKey(bucket, path), int(expiry.Seconds())), nil
}

// Delete removes objects, silently skipping absent paths.
func (m *MemoryObjectStore) Delete(_ context.Context, bucket string, paths []string) error {
	if m.FailDeletes {
		return fmt.Errorf("delete: storage unavailable")
	}
	m.mu.Lock()
	for _, path := range paths {
		delete(m.objects, objectKey(bucket, path))
	}
	m.mu.Unlock()
	return nil
}

// List returns objects under a prefix, sorted by path.
func (m *MemoryObjectStore) List(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ObjectInfo
	keyPrefix := objectKey(bucket, prefix)
	for key, data := range m.objects {
		if strings.HasPrefix(key, keyPrefix) {
			out = append(out, ObjectInfo{Path: strings.TrimPrefix(key, bucket+"/"), Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Has reports whether an object exists, for test assertions.
func (m *MemoryObjectStore) Has(bucket, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectKey(bucket, path)]
	return ok
}
