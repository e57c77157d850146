package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"asset-dedup/internal/model"
	"asset-dedup/internal/repository"
	apperrors "asset-dedup/pkg/errors"
)

// Driver runs a check or remove pass and aggregates the per-asset outcomes
// into a report.
type Driver struct {
	catalog  *CatalogService
	repo     repository.AssetRepository
	hasher   *Hasher
	surfaces SurfaceSource
	resolver *Resolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewDriver(catalog *CatalogService, repo repository.AssetRepository, hasher *Hasher, surfaces SurfaceSource, resolver *Resolver, logger *zap.Logger) *Driver {
	return &Driver{
		catalog:  catalog,
		repo:     repo,
		hasher:   hasher,
		surfaces: surfaces,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Run dispatches on mode. scope applies to check, ids to remove.
func (d *Driver) Run(ctx context.Context, mode model.Mode, scope []string, ids []int64) (*model.Report, error) {
	switch mode {
	case model.ModeCheck:
		return d.Check(ctx, scope)
	case model.ModeRemove:
		return d.Remove(ctx, ids)
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}
}

func (d *Driver) newReport(mode model.Mode, scope []string) *model.Report {
	return &model.Report{
		GeneratedAt:        d.now().UTC(),
		Mode:               mode,
		Scope:              scope,
		DuplicateGroups:    []model.DuplicateGroup{},
		DeletionCandidates: []model.DeletionDecision{},
		RemovableIDs:       []int64{},
		Failures:           []model.Failure{},
		Inconsistencies:    []model.Failure{},
	}
}

// collect lists every prefix in scope, merging overlapping prefixes, ordered
// by id.
func (d *Driver) collect(ctx context.Context, scope []string) ([]*model.Asset, error) {
	seen := make(map[int64]bool)
	var assets []*model.Asset
	for _, prefix := range scope {
		listed, err := d.repo.ListByPathPrefix(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list catalog %q: %w", prefix, err)
		}
		for _, a := range listed {
			if !seen[a.ID] {
				seen[a.ID] = true
				assets = append(assets, a)
			}
		}
	}
	sort.SliceStable(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets, nil
}

// Check hashes, resolves usage, groups and decides without mutating storage
// or the catalog. Digests computed here are not persisted; use sync for that.
func (d *Driver) Check(ctx context.Context, scope []string) (*model.Report, error) {
	if len(scope) == 0 {
		scope = []string{""}
	}
	report := d.newReport(model.ModeCheck, scope)

	assets, err := d.collect(ctx, scope)
	if err != nil {
		return nil, err
	}

	var unhashed []*model.Asset
	for i, a := range assets {
		if !a.IsHashed() {
			c := *a
			assets[i] = &c
			unhashed = append(unhashed, &c)
		}
	}
	for _, r := range d.hasher.HashAll(ctx, unhashed) {
		if r.Err != nil {
			report.Failures = append(report.Failures, failureFor(r.Asset, r.Err))
			report.Summary.HashFailures++
			continue
		}
		applyDigest(r.Asset, r.Digest)
	}

	surfaces, err := d.surfaces.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load surfaces: %w", err)
	}
	counts := d.resolver.ResolveUsage(assets, surfaces).Counts()

	groups := Group(assets)
	decisions := DecideAll(groups, counts)
	removable := RemovableIDs(decisions)

	report.DuplicateGroups = append(report.DuplicateGroups, groups...)
	report.DeletionCandidates = append(report.DeletionCandidates, decisions...)
	report.RemovableIDs = append(report.RemovableIDs, removable...)

	sizes := make(map[int64]int64, len(assets))
	s := &report.Summary
	s.TotalAssets = len(assets)
	s.Surfaces = len(surfaces)
	for _, a := range assets {
		sizes[a.ID] = a.SizeBytes
		if a.IsHashed() {
			s.HashedAssets++
		}
		if counts[a.ID] > 0 {
			s.UsedAssets++
		} else {
			s.UnusedAssets++
		}
	}
	for _, g := range groups {
		if g.Kind == model.GroupByHash {
			s.HashGroups++
		} else {
			s.FormatGroups++
		}
	}
	for _, dec := range decisions {
		s.KeepCount += len(dec.Keep)
	}
	s.RemoveCandidates = len(removable)
	for _, id := range removable {
		s.EstimatedBytesSaved += sizes[id]
	}
	s.Failures = len(report.Failures)

	d.logger.Info("check done",
		zap.Strings("scope", scope),
		zap.Int("assets", s.TotalAssets),
		zap.Int("hash_groups", s.HashGroups),
		zap.Int("format_groups", s.FormatGroups),
		zap.Int("remove_candidates", s.RemoveCandidates),
		zap.Int("failures", s.Failures))

	return report, nil
}

// Remove deletes the given assets after re-checking their usage against the
// current surfaces. Referenced assets are skipped with a UsageRaceError.
// Each id succeeds or fails on its own.
func (d *Driver) Remove(ctx context.Context, ids []int64) (*model.Report, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, errors.New("remove requires at least one asset id")
	}

	scope := make([]string, 0, len(ids))
	for _, id := range ids {
		scope = append(scope, strconv.FormatInt(id, 10))
	}
	report := d.newReport(model.ModeRemove, scope)
	report.Removals = []model.Removal{}

	targets, err := d.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	byID := make(map[int64]*model.Asset, len(targets))
	for _, a := range targets {
		byID[a.ID] = a
	}

	surfaces, err := d.surfaces.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load surfaces: %w", err)
	}
	usage := d.resolver.ResolveAllUsage(targets, surfaces)

	s := &report.Summary
	s.TotalAssets = len(targets)
	s.Surfaces = len(surfaces)

	for _, id := range ids {
		asset, ok := byID[id]
		if !ok {
			err := fmt.Errorf("asset %d: %w", id, apperrors.ErrNotFound)
			d.recordRemoval(report, &model.Asset{ID: id}, err)
			continue
		}

		if n := usage.Count(id); n > 0 {
			err := &apperrors.UsageRaceError{AssetID: id, UsageCount: n}
			d.logger.Warn("asset in use, skipped", zap.Int64("asset_id", id), zap.Int("usage_count", n))
			d.recordRemoval(report, asset, err)
			s.Skipped++
			continue
		}

		warning, err := d.catalog.remove(ctx, asset)
		if warning != nil {
			report.Inconsistencies = append(report.Inconsistencies, failureFor(asset, warning))
		}
		d.recordRemoval(report, asset, err)
	}

	s.Failures = len(report.Failures)
	s.Inconsistencies = len(report.Inconsistencies)

	d.logger.Info("remove done",
		zap.Int("requested", len(ids)),
		zap.Int("removed", s.Removed),
		zap.Int("skipped", s.Skipped),
		zap.Int("failures", s.Failures),
		zap.Int("inconsistencies", s.Inconsistencies))

	return report, nil
}

func (d *Driver) recordRemoval(report *model.Report, asset *model.Asset, err error) {
	removal := model.Removal{AssetID: asset.ID, Path: asset.StoragePath, Removed: err == nil}
	if err != nil {
		removal.Kind = apperrors.Kind(err)
		removal.Error = err.Error()
		report.Failures = append(report.Failures, failureFor(asset, err))
	} else {
		report.Summary.Removed++
	}
	report.Removals = append(report.Removals, removal)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Inventory lists the catalog under prefix with current usage counts.
func (d *Driver) Inventory(ctx context.Context, prefix string) ([]model.AssetUsage, error) {
	assets, err := d.collect(ctx, []string{prefix})
	if err != nil {
		return nil, err
	}
	surfaces, err := d.surfaces.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load surfaces: %w", err)
	}
	usage := d.resolver.ResolveUsage(assets, surfaces)

	out := make([]model.AssetUsage, 0, len(assets))
	for _, a := range assets {
		refs := usage[a.ID]
		if refs == nil {
			refs = []model.UsageReference{}
		}
		out = append(out, model.AssetUsage{Asset: a, UsageCount: len(refs), References: refs})
	}
	return out, nil
}
