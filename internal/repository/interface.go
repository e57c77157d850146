package repository

import (
	"context"

	"asset-dedup/internal/model"
)

// AssetRepository is the catalog persistence collaborator. storage_path is
// the upsert conflict key.
type AssetRepository interface {
	// ListByPathPrefix returns assets whose storage path starts with prefix,
	// ordered by id. An empty prefix lists the whole catalog.
	ListByPathPrefix(ctx context.Context, prefix string) ([]*model.Asset, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*model.Asset, error)
	GetByID(ctx context.Context, id int64) (*model.Asset, error)
	Upsert(ctx context.Context, asset *model.Asset) (*model.Asset, error)
	// Delete returns ErrNotFound when no row has the id.
	Delete(ctx context.Context, id int64) error
}

// PostRepository reads the rich-text records scanned for asset usage.
type PostRepository interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
}
