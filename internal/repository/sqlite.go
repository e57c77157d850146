package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
)

// AssetRow mirrors the image_assets table for the SQLite snapshot catalog.
type AssetRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	Filename         string `gorm:"index"`
	FilePath         string `gorm:"uniqueIndex;not null"`
	CdnURL           string
	OriginalFilename string
	HashMD5          string `gorm:"column:hash_md5;index"`
	HashSHA256       string `gorm:"column:hash_sha256"`
	FileSize         int64
	Format           string
	CreatedAt        time.Time
}

func (AssetRow) TableName() string { return "image_assets" }

type PostRow struct {
	ID            int64 `gorm:"primaryKey"`
	Title         string
	Content       string
	FeaturedImage string
}

func (PostRow) TableName() string { return "blog_posts" }

func (r AssetRow) toModel() *model.Asset {
	return hydrate(&model.Asset{
		ID:                r.ID,
		StoragePath:       r.FilePath,
		PublicURL:         r.CdnURL,
		OriginalFilename:  r.OriginalFilename,
		ContentHashMD5:    r.HashMD5,
		ContentHashSHA256: r.HashSHA256,
		SizeBytes:         r.FileSize,
		Format:            model.Format(r.Format),
		CreatedAt:         r.CreatedAt,
	})
}

// SQLiteRepository is a local catalog snapshot implementing both
// AssetRepository and PostRepository.
type SQLiteRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var (
	_ AssetRepository = (*SQLiteRepository)(nil)
	_ PostRepository  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(db *gorm.DB, logger *zap.Logger) (*SQLiteRepository, error) {
	if err := db.AutoMigrate(&AssetRow{}, &PostRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*model.Asset, error) {
	var rows []AssetRow
	q := r.db.WithContext(ctx).Order("id")
	if prefix != "" {
		// substr avoids LIKE wildcards and case folding
		q = q.Where("substr(file_path, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}
	return toModels(rows), nil
}

func (r *SQLiteRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []AssetRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "list", Err: err}
	}
	return toModels(rows), nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*model.Asset, error) {
	var row AssetRow
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "get", AssetID: id, Err: err}
	}
	return row.toModel(), nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	hydrate(asset)

	row := AssetRow{
		Filename:         asset.Filename(),
		FilePath:         asset.StoragePath,
		CdnURL:           asset.PublicURL,
		OriginalFilename: asset.OriginalFilename,
		HashMD5:          asset.ContentHashMD5,
		HashSHA256:       asset.ContentHashSHA256,
		FileSize:         asset.SizeBytes,
		Format:           string(asset.Format),
		CreatedAt:        asset.CreatedAt,
	}
	updates := []string{"filename", "cdn_url", "file_size", "format"}
	if asset.OriginalFilename != "" {
		updates = append(updates, "original_filename")
	}
	if asset.ContentHashMD5 != "" {
		updates = append(updates, "hash_md5", "hash_sha256")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "upsert", AssetID: asset.ID, Err: err}
	}

	// Re-read so the id and created_at reflect the surviving row on conflict
	var stored AssetRow
	if err := r.db.WithContext(ctx).Where("file_path = ?", asset.StoragePath).First(&stored).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "upsert", AssetID: asset.ID, Err: err}
	}
	return stored.toModel(), nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&AssetRow{}, id)
	if res.Error != nil {
		return &apperrors.PersistenceError{Op: "delete", AssetID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	var rows []PostRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "list posts", Err: err}
	}
	posts := make([]model.Post, 0, len(rows))
	for _, p := range rows {
		posts = append(posts, model.Post{ID: p.ID, Title: p.Title, Content: p.Content, FeaturedImage: p.FeaturedImage})
	}
	return posts, nil
}

func toModels(rows []AssetRow) []*model.Asset {
	assets := make([]*model.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, row.toModel())
	}
	return assets
}
