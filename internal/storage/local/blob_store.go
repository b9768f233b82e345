// Package local implements a local filesystem blob store.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagelens/pagelens/internal/analysis"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where blobs will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes objects to the local filesystem. Each object is a pair
// of files: the raw bytes under the generated id and a small JSON sidecar
// holding the original filename and content type.
type BlobStore struct {
	baseDir string
	idGen   analysis.IDGenerator
}

type sidecar struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// New creates a new local filesystem-backed blob store.
func New(cfg Config, idGen analysis.IDGenerator) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &BlobStore{
		baseDir: cfg.BaseDir,
		idGen:   idGen,
	}, nil
}

// PutObject writes the stream to disk under a fresh id.
func (s *BlobStore) PutObject(_ context.Context, name string, contentType string, data io.Reader) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}

	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	if err := os.WriteFile(s.blobPath(id), byteData, 0o600); err != nil {
		return "", fmt.Errorf("write blob file: %w", err)
	}

	meta, err := json.Marshal(sidecar{Name: name, ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0o600); err != nil {
		return "", fmt.Errorf("write sidecar file: %w", err)
	}
	return id, nil
}

// GetObject opens the stored file and returns it with its original name.
func (s *BlobStore) GetObject(_ context.Context, id string) (io.ReadCloser, string, error) {
	// Ids are UUIDs we generated; anything with a path separator is bogus.
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, "", analysis.ErrObjectNotFound
	}

	metaBytes, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", analysis.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("read sidecar file: %w", err)
	}
	var meta sidecar
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, "", fmt.Errorf("decode sidecar: %w", err)
	}

	f, err := os.Open(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", analysis.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("open blob file: %w", err)
	}
	return f, meta.Name, nil
}

func (s *BlobStore) blobPath(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *BlobStore) metaPath(id string) string {
	return filepath.Join(s.baseDir, id+".meta.json")
}
