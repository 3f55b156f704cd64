package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is the path the HTTP router serves the upload directory under.
const URLPrefix = "/uploads/"

type FileSystemStorage struct {
	basePath string
}

func NewFileSystemStorage(basePath string) *FileSystemStorage {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Printf("FileSystemStorage: failed to create upload directory %s: %v", basePath, err)
	}
	return &FileSystemStorage{basePath: basePath}
}

func (s *FileSystemStorage) BasePath() string { return s.basePath }

func (s *FileSystemStorage) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	fullPath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return key, nil
}

func (s *FileSystemStorage) GetURL(ctx context.Context, key string) (string, error) {
	if strings.HasPrefix(key, URLPrefix) {
		return key, nil
	}
	return URLPrefix + key, nil
}

func (s *FileSystemStorage) Download(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// path resolves key inside basePath and refuses keys that escape it.
func (s *FileSystemStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(key, URLPrefix))
	if clean == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}
