package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
	"asset-dedup/pkg/storage"
	"asset-dedup/pkg/validator"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// SimpleInMemoryStorage for testing
type SimpleInMemoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ storage.Storage = (*SimpleInMemoryStorage)(nil)

func NewSimpleInMemoryStorage() *SimpleInMemoryStorage {
	return &SimpleInMemoryStorage{files: make(map[string][]byte)}
}

func (s *SimpleInMemoryStorage) Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return int64(len(data)), nil
}

func (s *SimpleInMemoryStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, exists := s.files[path]; exists {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil, fmt.Errorf("%s: %w", path, apperrors.ErrNotFound)
}

func (s *SimpleInMemoryStorage) Delete(ctx context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.files, p)
	}
	return nil
}

func (s *SimpleInMemoryStorage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var objects []storage.ObjectInfo
	for k, v := range s.files {
		if strings.HasPrefix(k, prefix) {
			objects = append(objects, storage.ObjectInfo{Path: k, Size: int64(len(v))})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// PublicURL is not fetchable over HTTP, so hashing reads through Get.
func (s *SimpleInMemoryStorage) PublicURL(path string) string {
	return "mem://" + path
}

func (s *SimpleInMemoryStorage) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

// MockStorage implements the storage.Storage interface for failure injection
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error) {
	args := m.Called(ctx, path, reader, size, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, paths ...string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	objects, _ := args.Get(0).([]storage.ObjectInfo)
	return objects, args.Error(1)
}

func (m *MockStorage) PublicURL(path string) string {
	return "mock://" + path
}

// SimpleInMemoryRepository for testing
type SimpleInMemoryRepository struct {
	mu     sync.Mutex
	assets map[int64]*model.Asset
	nextID int64
	// deleteErr, when set, is returned by Delete instead of deleting.
	deleteErr error
}

func NewSimpleInMemoryRepository() *SimpleInMemoryRepository {
	return &SimpleInMemoryRepository{assets: make(map[int64]*model.Asset), nextID: 1}
}

// Add catalogs an asset at path with the given md5 and returns it.
func (r *SimpleInMemoryRepository) Add(path, md5 string, size int64) *model.Asset {
	a, _ := r.Upsert(context.Background(), &model.Asset{
		StoragePath:    path,
		PublicURL:      "https://cdn.example.com/storage/v1/object/public/blog-images/" + path,
		ContentHashMD5: md5,
		SizeBytes:      size,
	})
	return a
}

func (r *SimpleInMemoryRepository) sorted(filter func(*model.Asset) bool) []*model.Asset {
	var out []*model.Asset
	for _, a := range r.assets {
		if filter(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *SimpleInMemoryRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(a *model.Asset) bool { return strings.HasPrefix(a.StoragePath, prefix) }), nil
}

func (r *SimpleInMemoryRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[int64]bool)
	for _, id := range ids {
		want[id] = true
	}
	return r.sorted(func(a *model.Asset) bool { return want[a.ID] }), nil
}

func (r *SimpleInMemoryRepository) GetByID(ctx context.Context, id int64) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
}

func (r *SimpleInMemoryRepository) Upsert(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.assets {
		if existing.StoragePath == asset.StoragePath {
			asset.ID = existing.ID
		}
	}
	if asset.ID == 0 {
		asset.ID = r.nextID
		r.nextID++
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	asset.NormalizedFilename = validator.NormalizeFilename(asset.Filename())
	if asset.Format == "" {
		asset.Format = validator.FormatFromFilename(asset.Filename())
	}
	c := *asset
	r.assets[asset.ID] = &c
	return asset, nil
}

func (r *SimpleInMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.assets[id]; !ok {
		return fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
	}
	delete(r.assets, id)
	return nil
}

func (r *SimpleInMemoryRepository) Has(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.assets[id]
	return ok
}

// staticSurfaces is a fixed SurfaceSource.
type staticSurfaces struct {
	surfaces []model.Surface
	err      error
}

func (s *staticSurfaces) Load(ctx context.Context) ([]model.Surface, error) {
	return s.surfaces, s.err
}

func post(id, content string) model.Surface {
	return model.Surface{Kind: model.SurfaceRichTextField, ID: id, Content: content}
}
