package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
)

type driverFixture struct {
	storage  *SimpleInMemoryStorage
	repo     *SimpleInMemoryRepository
	surfaces *staticSurfaces
	driver   *Driver
}

func newDriverFixture() *driverFixture {
	logger := zap.NewNop()
	st := NewSimpleInMemoryStorage()
	repo := NewSimpleInMemoryRepository()
	hasher := NewHasher(st, HasherOptions{Concurrency: 2}, logger)
	surfaces := &staticSurfaces{}
	driver := NewDriver(NewCatalogService(st, repo, hasher, logger), repo, hasher, surfaces,
		NewResolver([]PathAlias{{Prefix: "/campaigns/", StoragePrefix: "originals/campaigns/"}}), logger)
	driver.now = func() time.Time { return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC) }
	return &driverFixture{storage: st, repo: repo, surfaces: surfaces, driver: driver}
}

// store puts content in blob storage and catalogs it without digests.
func (f *driverFixture) store(t *testing.T, path, content string) *model.Asset {
	t.Helper()
	_, err := f.storage.Put(context.Background(), path, strings.NewReader(content), int64(len(content)), "")
	require.NoError(t, err)
	a, err := f.repo.Upsert(context.Background(), &model.Asset{StoragePath: path, SizeBytes: int64(len(content))})
	require.NoError(t, err)
	return a
}

func storageURL(path string) string {
	return "https://p.supabase.co/storage/v1/object/public/blog-images/" + path
}

func TestDriver_Check(t *testing.T) {
	f := newDriverFixture()
	jpg := f.store(t, "originals/blog/photo.jpg", "jpeg-bytes")
	webp := f.store(t, "originals/blog/photo.webp", "webp-bytes")
	dupA := f.store(t, "originals/blog/img-001.png", "same-bytes")
	dupB := f.store(t, "originals/other/uuid1234-img-001.png", "same-bytes")
	hero := f.store(t, "originals/campaigns/2025-05/hero.webp", "hero")
	// Catalog row without a blob: hashing fails, the run goes on
	broken, err := f.repo.Upsert(context.Background(), &model.Asset{StoragePath: "originals/blog/broken.png"})
	require.NoError(t, err)

	f.surfaces.surfaces = []model.Surface{
		post("1", `<p><img src="`+storageURL(jpg.StoragePath)+`"></p>`),
		{Kind: model.SurfaceStaticTemplate, ID: "public/may.html", Content: `<div style="background-image:url(/campaigns/2025-05/hero.webp)"></div>`},
	}

	report, err := f.driver.Check(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.ModeCheck, report.Mode)
	assert.Equal(t, []string{""}, report.Scope)
	s := report.Summary
	assert.Equal(t, 6, s.TotalAssets)
	assert.Equal(t, 5, s.HashedAssets)
	assert.Equal(t, 1, s.HashFailures)
	assert.Equal(t, 2, s.Surfaces)
	assert.Equal(t, 2, s.UsedAssets)
	assert.Equal(t, 4, s.UnusedAssets)
	assert.Equal(t, 1, s.HashGroups)
	assert.Equal(t, 1, s.FormatGroups)
	assert.Equal(t, 2, s.RemoveCandidates)
	assert.Equal(t, int64(len("webp-bytes")+len("same-bytes")), s.EstimatedBytesSaved)
	assert.Equal(t, []int64{webp.ID, dupB.ID}, report.RemovableIDs)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken.ID, report.Failures[0].AssetID)
	assert.Equal(t, "fetch", report.Failures[0].Kind)

	for _, d := range report.DeletionCandidates {
		switch d.Kind {
		case model.GroupByHash:
			assert.Equal(t, []int64{dupA.ID}, d.KeptIDs())
		case model.GroupByFormat:
			assert.Equal(t, jpg.ID, d.PrimaryID)
			assert.Equal(t, model.ReasonUnusedDuplicate, d.Remove[0].Reason)
		}
	}
	assert.NotContains(t, report.RemovableIDs, hero.ID)

	// Check is read-only
	stored, err := f.repo.GetByID(context.Background(), jpg.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsHashed())
	assert.True(t, f.storage.Has(webp.StoragePath))
}

func TestDriver_CheckIsIdempotent(t *testing.T) {
	f := newDriverFixture()
	f.store(t, "originals/a/pic.jpg", "1")
	f.store(t, "originals/a/pic.webp", "2")
	f.store(t, "originals/a/pic.png", "2")
	f.store(t, "originals/b/pic.png", "1")
	f.surfaces.surfaces = []model.Surface{post("1", "![p](/x/pic.png)")}

	first, err := f.driver.Check(context.Background(), []string{"originals/"})
	require.NoError(t, err)
	second, err := f.driver.Check(context.Background(), []string{"originals/"})
	require.NoError(t, err)

	assert.Equal(t, first.DeletionCandidates, second.DeletionCandidates)
	assert.Equal(t, first.RemovableIDs, second.RemovableIDs)
}

func TestDriver_CheckScopeMergesPrefixes(t *testing.T) {
	f := newDriverFixture()
	f.store(t, "originals/a/x.png", "x")
	f.store(t, "originals/b/y.png", "y")
	f.store(t, "other/z.png", "z")

	report, err := f.driver.Check(context.Background(), []string{"originals/a/", "originals/", "missing/"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalAssets)
}

func TestDriver_CheckSurfaceFailureAborts(t *testing.T) {
	f := newDriverFixture()
	f.store(t, "originals/a.png", "a")
	f.surfaces.err = errors.New("database unreachable")

	_, err := f.driver.Check(context.Background(), nil)
	assert.Error(t, err)
}

func TestDriver_RemoveSkipsNewlyReferencedAsset(t *testing.T) {
	f := newDriverFixture()
	live := f.store(t, "originals/blog/photo.webp", "a")
	stale := f.store(t, "originals/blog/old.png", "b")

	// Published after the check report was generated
	f.surfaces.surfaces = []model.Surface{post("99", "![new]("+storageURL(live.StoragePath)+")")}

	report, err := f.driver.Run(context.Background(), model.ModeRemove, nil, []int64{live.ID, stale.ID, 404})
	require.NoError(t, err)

	assert.Equal(t, model.ModeRemove, report.Mode)
	require.Len(t, report.Removals, 3)

	assert.False(t, report.Removals[0].Removed)
	assert.Equal(t, "usage_race", report.Removals[0].Kind)
	assert.True(t, f.storage.Has(live.StoragePath))
	assert.True(t, f.repo.Has(live.ID))

	assert.True(t, report.Removals[1].Removed)
	assert.False(t, f.storage.Has(stale.StoragePath))
	assert.False(t, f.repo.Has(stale.ID))

	assert.False(t, report.Removals[2].Removed)
	assert.Equal(t, "not_found", report.Removals[2].Kind)

	assert.Equal(t, 1, report.Summary.Removed)
	assert.Equal(t, 1, report.Summary.Skipped)
	assert.Equal(t, 2, report.Summary.Failures)

	for _, fail := range report.Failures {
		if fail.AssetID == live.ID {
			assert.Equal(t, "usage_race", fail.Kind)
			assert.Contains(t, fail.Error, "referenced")
		}
	}
}

func TestDriver_RemoveReportsInconsistency(t *testing.T) {
	f := newDriverFixture()
	a := f.store(t, "originals/a.png", "a")
	f.repo.deleteErr = apperrors.ErrNotFound

	report, err := f.driver.Remove(context.Background(), []int64{a.ID, a.ID})
	require.NoError(t, err)

	require.Len(t, report.Removals, 1)
	assert.True(t, report.Removals[0].Removed)
	require.Len(t, report.Inconsistencies, 1)
	assert.Equal(t, a.ID, report.Inconsistencies[0].AssetID)
	assert.Equal(t, 1, report.Summary.Inconsistencies)
}

func TestDriver_RemoveRequiresIDs(t *testing.T) {
	f := newDriverFixture()
	_, err := f.driver.Run(context.Background(), model.ModeRemove, []string{"originals/"}, nil)
	assert.Error(t, err)

	_, err = f.driver.Run(context.Background(), model.Mode("purge"), nil, nil)
	assert.Error(t, err)
}

func TestDriver_Inventory(t *testing.T) {
	f := newDriverFixture()
	used := f.store(t, "originals/blog/used.png", "u")
	f.store(t, "originals/blog/idle.png", "i")
	f.store(t, "elsewhere/other.png", "o")
	f.surfaces.surfaces = []model.Surface{post("1", `<img src="`+storageURL(used.StoragePath)+`">`)}

	items, err := f.driver.Inventory(context.Background(), "originals/")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, used.ID, items[0].ID)
	assert.Equal(t, 1, items[0].UsageCount)
	assert.Equal(t, "exact-path", items[0].References[0].Rule)
	assert.Equal(t, 0, items[1].UsageCount)
	assert.NotNil(t, items[1].References)
}

func TestDriver_RemoveBlocksEveryTargetMatchingAURL(t *testing.T) {
	f := newDriverFixture()
	first := f.store(t, "originals/a/photo.webp", "a")
	second := f.store(t, "originals/b/photo.webp", "b")
	f.surfaces.surfaces = []model.Surface{post("5", `<img src="/images/photo.webp">`)}

	report, err := f.driver.Remove(context.Background(), []int64{first.ID, second.ID})
	require.NoError(t, err)

	require.Len(t, report.Removals, 2)
	for _, r := range report.Removals {
		assert.False(t, r.Removed, "asset %d", r.AssetID)
		assert.Equal(t, "usage_race", r.Kind)
	}
	assert.Equal(t, 2, report.Summary.Skipped)
	assert.True(t, f.storage.Has(first.StoragePath))
	assert.True(t, f.storage.Has(second.StoragePath))
	assert.True(t, f.repo.Has(second.ID))
}
