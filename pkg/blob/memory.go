package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. Presigned URLs are fake but
// carry the key and expiry so tests can assert on them.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string]memObject
	partSize int64
}

type memObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory blob store with the default
// part size.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]memObject),
		partSize: DefaultPartSize,
	}
}

// SetPartSize overrides the part size, letting tests exercise part splitting
// without multi-megabyte fixtures.
func (m *MemoryStore) SetPartSize(size int64) {
	m.partSize = size
}

func (m *MemoryStore) PartSize() int64 {
	return m.partSize
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) BeginMultipartUpload(ctx context.Context, key, contentType string) (Upload, error) {
	return &memoryUpload{store: m, key: key, contentType: contentType}, nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory:///%s?expires=%d", key, time.Now().Add(ttl).Unix()), nil
}

// ObjectCount returns the number of stored objects.
func (m *MemoryStore) ObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ObjectData returns a copy of the stored bytes for a key, for assertions.
func (m *MemoryStore) ObjectData(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// memoryUpload buffers parts until Complete.
type memoryUpload struct {
	store       *MemoryStore
	key         string
	contentType string
	buf         bytes.Buffer
	done        bool
}

func (u *memoryUpload) UploadPart(ctx context.Context, data []byte) error {
	_, err := u.buf.Write(data)
	return err
}

func (u *memoryUpload) Complete(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.store.Put(ctx, u.key, u.contentType, u.buf.Bytes())
}

func (u *memoryUpload) Abort(ctx context.Context) error {
	u.done = true
	u.buf.Reset()
	return nil
}
