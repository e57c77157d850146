package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
)

const (
	assetColumns = `id, file_path, COALESCE(cdn_url, ''), COALESCE(original_filename, ''),
		COALESCE(hash_md5, ''), COALESCE(hash_sha256, ''), COALESCE(file_size, 0),
		COALESCE(format, ''), created_at`
)

// PgAssetRepository implements AssetRepository over the image_assets table.
// The Redis client is optional.
type PgAssetRepository struct {
	db     *pgxpool.Pool
	cache  *listCache
	logger *zap.Logger
}

var _ AssetRepository = (*PgAssetRepository)(nil)

func NewAssetRepository(db *pgxpool.Pool, cache *redis.Client, logger *zap.Logger) *PgAssetRepository {
	return &PgAssetRepository{db: db, cache: newListCache(cache, logger), logger: logger}
}

func scanAsset(row pgx.Row) (*model.Asset, error) {
	var a model.Asset
	var format string
	if err := row.Scan(&a.ID, &a.StoragePath, &a.PublicURL, &a.OriginalFilename,
		&a.ContentHashMD5, &a.ContentHashSHA256, &a.SizeBytes, &format, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Format = model.Format(format)
	return hydrate(&a), nil
}

func collectAssets(rows pgx.Rows) ([]*model.Asset, error) {
	defer rows.Close()
	var assets []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *PgAssetRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*model.Asset, error) {
	if assets, ok := r.cache.get(ctx, prefix); ok {
		return assets, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+assetColumns+" FROM image_assets WHERE file_path LIKE $1 ORDER BY id",
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}
	assets, err := collectAssets(rows)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}

	r.cache.put(ctx, prefix, assets)
	return assets, nil
}

func (r *PgAssetRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+assetColumns+" FROM image_assets WHERE id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}
	assets, err := collectAssets(rows)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}
	return assets, nil
}

func (r *PgAssetRepository) GetByID(ctx context.Context, id int64) (*model.Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, "SELECT "+assetColumns+" FROM image_assets WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "get", AssetID: id, Err: err}
	}
	return a, nil
}

func (r *PgAssetRepository) Upsert(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	hydrate(asset)

	err := r.db.QueryRow(ctx, `
		INSERT INTO image_assets (filename, file_path, cdn_url, original_filename, hash_md5, hash_sha256, file_size, format, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (file_path) DO UPDATE SET
			filename = EXCLUDED.filename,
			cdn_url = EXCLUDED.cdn_url,
			original_filename = COALESCE(NULLIF(EXCLUDED.original_filename, ''), image_assets.original_filename),
			hash_md5 = COALESCE(EXCLUDED.hash_md5, image_assets.hash_md5),
			hash_sha256 = COALESCE(EXCLUDED.hash_sha256, image_assets.hash_sha256),
			file_size = EXCLUDED.file_size,
			format = EXCLUDED.format
		RETURNING id, created_at`,
		asset.Filename(), asset.StoragePath, asset.PublicURL, asset.OriginalFilename,
		asset.ContentHashMD5, asset.ContentHashSHA256, asset.SizeBytes, string(asset.Format), asset.CreatedAt).
		Scan(&asset.ID, &asset.CreatedAt)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "upsert", AssetID: asset.ID, Err: err}
	}

	r.cache.invalidate(ctx)
	return asset, nil
}

func (r *PgAssetRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM image_assets WHERE id = $1", id)
	if err != nil {
		return &apperrors.PersistenceError{Op: "delete", AssetID: id, Err: err}
	}
	r.cache.invalidate(ctx)
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
