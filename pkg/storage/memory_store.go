package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in-process. Presigned URLs use the memory://
// scheme and are only meaningful to tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]Object
}

// NewMemoryStore builds an empty in-memory object store.
func NewMemoryStore(bucket string) *MemoryStore {
	if bucket == "" {
		bucket = "rentbook"
	}
	return &MemoryStore{bucket: bucket, objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if size >= 0 {
		r = io.LimitReader(r, size)
	}
	if _, err := buf.ReadFrom(r); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	m.mu.Lock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {time.Now().Add(expiry).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	delete(m.objects, key)
	return nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// ReceiptKey is the object key for an expense receipt upload.
func ReceiptKey(expenseID, filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "comprobante"
	}
	return "comprobantes/" + expenseID + "/" + name
}

// ExportKey is the object key for a monthly CSV export.
func ExportKey(month, year int) string {
	return fmt.Sprintf("exports/%04d-%02d/reporte-%04d-%02d.csv", year, month, year, month)
}
