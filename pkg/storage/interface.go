package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object returned by List.
type ObjectInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Storage is the blob storage collaborator. Delete treats missing objects as
// already deleted.
type Storage interface {
	Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, paths ...string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	PublicURL(path string) string
}

var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*SeaweedFSStorage)(nil)
	_ Storage = (*SupabaseStorage)(nil)
)
