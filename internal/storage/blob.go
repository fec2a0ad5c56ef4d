// Package storage keeps attachment bytes outside the relational store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AttachmentPrefix is the key prefix under which attachments are written.
const AttachmentPrefix = "ticket_attachments"

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore persists opaque files by key.
type BlobStore interface {
	Put(ctx context.Context, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// LocalBlobStore writes blobs below a root directory.
type LocalBlobStore struct {
	root string
}

// NewLocalBlobStore creates the root directory when missing.
func NewLocalBlobStore(root string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(filepath.Join(root, AttachmentPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalBlobStore{root: root}, nil
}

// Put stores r under a fresh key and returns it.
func (s *LocalBlobStore) Put(ctx context.Context, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := path.Join(AttachmentPrefix, uuid.NewString()+extensions[contentType])
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit blob: %w", err)
	}
	return key, nil
}

// Open returns a reader for the blob stored under key.
func (s *LocalBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes the blob. Missing blobs are not an error.
func (s *LocalBlobStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalBlobStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if !strings.HasPrefix(clean, "/"+AttachmentPrefix+"/") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
