// Package gcs provides a blob store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/pagelens/pagelens/internal/analysis"
)

const filenameMetaKey = "pagelens-filename"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// BlobStore writes objects to a configured GCS bucket. The original
// filename travels in object metadata so downloads can restore it.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	idGen  analysis.IDGenerator
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config, idGen analysis.IDGenerator) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		idGen:  idGen,
	}, nil
}

// PutObject uploads the stream under a fresh object id.
func (s *BlobStore) PutObject(ctx context.Context, name string, contentType string, data io.Reader) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}
	obj := s.client.Bucket(s.bucket).Object(s.objectKey(id))
	writer := obj.NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	writer.Metadata = map[string]string{filenameMetaKey: name}
	if _, err := io.Copy(writer, data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return id, nil
}

// GetObject streams the object back along with its stored filename.
func (s *BlobStore) GetObject(ctx context.Context, id string) (io.ReadCloser, string, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectKey(id))
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", analysis.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("object attrs: %w", err)
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", analysis.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("open object reader: %w", err)
	}
	return reader, attrs.Metadata[filenameMetaKey], nil
}

func (s *BlobStore) objectKey(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}
