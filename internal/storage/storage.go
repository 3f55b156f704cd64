// Package storage persists uploaded images and resolves the URL they are
// served from.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrEmptyFile = errors.New("empty file")

type FileStorage interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	GetURL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// NewKey returns a unique object key that keeps the extension of fileName.
func NewKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return uuid.New().String() + ext
}
