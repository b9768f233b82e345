// Package memory stores blob content in-memory for development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pagelens/pagelens/internal/analysis"
)

type object struct {
	name        string
	contentType string
	data        []byte
}

// BlobStore keeps objects in a map keyed by generated id.
type BlobStore struct {
	idGen analysis.IDGenerator

	mu      sync.RWMutex
	objects map[string]object
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore(idGen analysis.IDGenerator) *BlobStore {
	return &BlobStore{
		idGen:   idGen,
		objects: make(map[string]object),
	}
}

// PutObject persists the content under a fresh id.
func (s *BlobStore) PutObject(_ context.Context, name string, contentType string, data io.Reader) (string, error) {
	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = object{
		name:        name,
		contentType: contentType,
		data:        append([]byte(nil), byteData...),
	}
	return id, nil
}

// GetObject returns the stored stream and original filename.
func (s *BlobStore) GetObject(_ context.Context, id string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	obj, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, "", analysis.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.name, nil
}
