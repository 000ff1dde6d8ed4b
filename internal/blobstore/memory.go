package blobstore

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps objects in process memory. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "http://localhost:8080/storage"
	}
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func key(bucket Bucket, objectPath string) string {
	return string(bucket) + "/" + objectPath
}

func (m *MemoryStore) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(obj.Bucket, obj.Path)
	if _, ok := m.objects[k]; ok {
		return ErrObjectExists
	}
	obj.Data = append([]byte(nil), obj.Data...)
	m.objects[k] = obj
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, bucket Bucket, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(bucket, objectPath)
	if _, ok := m.objects[k]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, k)
	return nil
}

func (m *MemoryStore) PublicURL(bucket Bucket, objectPath string) string {
	return m.baseURL + "/" + key(bucket, objectPath)
}

// Get returns a stored object.
func (m *MemoryStore) Get(bucket Bucket, objectPath string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key(bucket, objectPath)]
	return obj, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
