package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	apperrors "asset-dedup/pkg/errors"
)

type LocalStorage struct {
	basePath      string
	publicBaseURL string
}

// sanitizePath prevents path traversal attacks by cleaning the path and ensuring it's within the base directory
func (s *LocalStorage) sanitizePath(userPath string) (string, error) {
	cleanPath := filepath.Clean("/" + userPath)
	cleanPath = strings.TrimPrefix(cleanPath, "/")

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("path traversal detected: %s", userPath)
	}

	fullPath := filepath.Join(s.basePath, cleanPath)
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	absBasePath, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absFullPath, absBasePath+string(filepath.Separator)) && absFullPath != absBasePath {
		return "", fmt.Errorf("path outside base directory: %s", userPath)
	}

	return cleanPath, nil
}

// NewLocalStorage serves objects from a directory. publicBaseURL is prefixed
// to object paths to build public URLs; when empty, file:// URLs are used.
func NewLocalStorage(basePath, publicBaseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &LocalStorage{basePath: basePath, publicBaseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

func (s *LocalStorage) Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error) {
	cleanPath, err := s.sanitizePath(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path: %w", err)
	}

	fullPath := filepath.Join(s.basePath, cleanPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return io.Copy(file, reader)
}

func (s *LocalStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	cleanPath, err := s.sanitizePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(filepath.Join(s.basePath, cleanPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		cleanPath, err := s.sanitizePath(p)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}

		err = os.Remove(filepath.Join(s.basePath, cleanPath))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return nil
}

func (s *LocalStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	cleanPrefix, err := s.sanitizePath(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid prefix: %w", err)
	}

	var objects []ObjectInfo
	searchPath := filepath.Join(s.basePath, cleanPrefix)

	err = filepath.Walk(searchPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip files that can't be accessed instead of failing
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return nil
		}
		objects = append(objects, ObjectInfo{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return objects, nil
}

func (s *LocalStorage) PublicURL(path string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escapePath(path)
	}
	abs, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(path)))
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// escapePath percent-encodes each segment of an object path.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
