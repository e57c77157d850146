package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
	"asset-dedup/internal/repository"
	apperrors "asset-dedup/pkg/errors"
	"asset-dedup/pkg/storage"
	"asset-dedup/pkg/validator"
)

// CatalogService coordinates the asset catalog with blob storage.
type CatalogService struct {
	storage storage.Storage
	repo    repository.AssetRepository
	hasher  *Hasher
	logger  *zap.Logger
}

func NewCatalogService(st storage.Storage, repo repository.AssetRepository, hasher *Hasher, logger *zap.Logger) *CatalogService {
	return &CatalogService{storage: st, repo: repo, hasher: hasher, logger: logger}
}

func (s *CatalogService) List(ctx context.Context, prefix string) ([]*model.Asset, error) {
	return s.repo.ListByPathPrefix(ctx, prefix)
}

// Remove deletes the blob and then the catalog row of one asset. A missing
// blob is treated as already deleted. A missing row after the blob was
// deleted is returned as a warning, not an error.
func (s *CatalogService) Remove(ctx context.Context, id int64) (*apperrors.InconsistencyWarning, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.remove(ctx, asset)
}

func (s *CatalogService) remove(ctx context.Context, asset *model.Asset) (*apperrors.InconsistencyWarning, error) {
	if err := s.storage.Delete(ctx, asset.StoragePath); err != nil {
		s.logger.Error("Failed to delete storage file",
			zap.Error(err), zap.Int64("asset_id", asset.ID), zap.String("path", asset.StoragePath))
		return nil, fmt.Errorf("delete blob %s: %w", asset.StoragePath, err)
	}

	err := s.repo.Delete(ctx, asset.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		warning := &apperrors.InconsistencyWarning{
			AssetID: asset.ID,
			Path:    asset.StoragePath,
			Detail:  "blob deleted but catalog row was already gone",
		}
		s.logger.Warn("catalog inconsistency", zap.Int64("asset_id", asset.ID), zap.String("path", asset.StoragePath))
		return warning, nil
	}
	if err != nil {
		warning := &apperrors.InconsistencyWarning{
			AssetID: asset.ID,
			Path:    asset.StoragePath,
			Detail:  "blob deleted but catalog row could not be removed",
		}
		s.logger.Error("Failed to delete catalog row",
			zap.Error(err), zap.Int64("asset_id", asset.ID), zap.String("path", asset.StoragePath))
		return warning, err
	}

	s.logger.Info("Asset removed", zap.Int64("asset_id", asset.ID), zap.String("path", asset.StoragePath))
	return nil, nil
}

// Upload stores a local file under folder as "<uuid>-<sanitized name>" and
// catalogs it with its digests.
func (s *CatalogService) Upload(ctx context.Context, reader io.Reader, filename, folder string) (*model.Asset, error) {
	data, err := io.ReadAll(io.LimitReader(reader, validator.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := validator.ValidateImage(filename, int64(len(data))); err != nil {
		return nil, err
	}

	digest, err := computeDigest(bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}

	name := uuid.NewString() + "-" + validator.SanitizeFilename(filename)
	storagePath := joinFolder(strings.Trim(folder, "/"), name)
	contentType := mimetype.Detect(data).String()

	if _, err := s.storage.Put(ctx, storagePath, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", storagePath, err)
	}

	asset := &model.Asset{
		StoragePath:      storagePath,
		PublicURL:        s.storage.PublicURL(storagePath),
		OriginalFilename: path.Base(filename),
		CreatedAt:        time.Now(),
	}
	applyDigest(asset, digest)

	stored, err := s.repo.Upsert(ctx, asset)
	if err != nil {
		// If the catalog write fails, clean up storage
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Error("Failed to clean up uploaded file", zap.Error(delErr), zap.String("path", storagePath))
		}
		return nil, err
	}

	s.logger.Info("New asset uploaded",
		zap.Int64("asset_id", stored.ID),
		zap.String("path", storagePath),
		zap.String("md5", stored.ContentHashMD5),
		zap.Int64("size", stored.SizeBytes))

	return stored, nil
}

// SyncResult summarizes a catalog sync.
type SyncResult struct {
	Listed   int             `json:"listed"`
	Missing  int             `json:"missing"`
	Unhashed int             `json:"unhashed"`
	Upserted int             `json:"upserted"`
	Failures []model.Failure `json:"failures"`
}

// Sync catalogs image objects under prefix that have no row, and hashes rows
// whose digests are missing. New rows are written even when hashing fails so
// the next sync can retry them.
func (s *CatalogService) Sync(ctx context.Context, prefix string) (*SyncResult, error) {
	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list storage: %w", err)
	}
	rows, err := s.repo.ListByPathPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	known := make(map[string]*model.Asset, len(rows))
	for _, a := range rows {
		known[a.StoragePath] = a
	}

	result := &SyncResult{Failures: []model.Failure{}}
	var pending []*model.Asset
	for _, obj := range objects {
		if !validator.IsImageFile(obj.Path) {
			continue
		}
		result.Listed++

		if a, ok := known[obj.Path]; ok {
			if !a.IsHashed() {
				result.Unhashed++
				pending = append(pending, a)
			}
			continue
		}

		result.Missing++
		original, _ := validator.StripUUIDPrefix(path.Base(obj.Path))
		pending = append(pending, &model.Asset{
			StoragePath:      obj.Path,
			PublicURL:        s.storage.PublicURL(obj.Path),
			OriginalFilename: original,
			SizeBytes:        obj.Size,
			Format:           validator.FormatFromFilename(obj.Path),
			CreatedAt:        obj.CreatedAt,
		})
	}

	for _, r := range s.hasher.HashAll(ctx, pending) {
		a := r.Asset
		if r.Err != nil {
			result.Failures = append(result.Failures, failureFor(a, r.Err))
			if a.ID != 0 {
				// Existing row, nothing new to write
				continue
			}
		} else {
			applyDigest(a, r.Digest)
		}

		if _, err := s.repo.Upsert(ctx, a); err != nil {
			s.logger.Error("catalog upsert failed", zap.String("path", a.StoragePath), zap.Error(err))
			result.Failures = append(result.Failures, failureFor(a, err))
			continue
		}
		result.Upserted++
	}

	s.logger.Info("catalog sync done",
		zap.String("prefix", prefix),
		zap.Int("listed", result.Listed),
		zap.Int("missing", result.Missing),
		zap.Int("unhashed", result.Unhashed),
		zap.Int("upserted", result.Upserted),
		zap.Int("failures", len(result.Failures)))

	return result, nil
}

func failureFor(a *model.Asset, err error) model.Failure {
	return model.Failure{
		AssetID: a.ID,
		Path:    a.StoragePath,
		Kind:    apperrors.Kind(err),
		Error:   err.Error(),
	}
}
