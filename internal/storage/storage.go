// Package storage keeps uploaded document bytes on local disk or in a Google
// Cloud Storage bucket. Callers only see object keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lawdesk/internal/config"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Store is the document byte store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		s, err := NewLocalStore(cfg.LocalDir, cfg.PublicPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewKey returns "YYYY/MM/<uuid><ext>" for an upload named fileName.
func NewKey(now time.Time, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}

// validKey rejects keys that could escape the store root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
