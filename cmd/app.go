package main

import (
	"context"
	"fmt"

	"asset-dedup/internal/config"
	"asset-dedup/internal/report"
	"asset-dedup/internal/repository"
	"asset-dedup/internal/service"
	"asset-dedup/pkg/storage"
)

// app holds the wired components for one command invocation.
type app struct {
	storage storage.Storage
	assets  repository.AssetRepository
	catalog *service.CatalogService
	driver  *service.Driver
	reports *report.Writer
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := config.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	a := &app{storage: st}

	var posts repository.PostRepository
	switch cfg.Catalog.Driver {
	case "sqlite":
		db, err := config.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		}
		repo, err := repository.NewSQLiteRepository(db, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("sqlite catalog init failed: %w", err)
		}
		a.assets, posts = repo, repo
	default:
		pool, err := config.NewDBPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		cache := config.NewRedis(cfg.Redis)
		if cache != nil {
			a.closers = append(a.closers, func() { _ = cache.Close() })
		}
		a.assets = repository.NewAssetRepository(pool, cache, logger)
		posts = repository.NewPostRepository(pool, logger)
	}

	hasher := service.NewHasher(st, service.HasherOptions{
		Concurrency: cfg.Hasher.Concurrency,
		Timeout:     cfg.Hasher.Timeout,
		UserAgent:   cfg.Hasher.UserAgent,
		Referer:     cfg.Hasher.Referer,
	}, logger)

	aliases := make([]service.PathAlias, 0, len(cfg.Surfaces.PathAliases))
	for _, pa := range cfg.Surfaces.PathAliases {
		aliases = append(aliases, service.PathAlias{Prefix: pa.Prefix, StoragePrefix: pa.StoragePrefix})
	}

	a.catalog = service.NewCatalogService(st, a.assets, hasher, logger)
	a.driver = service.NewDriver(
		a.catalog,
		a.assets,
		hasher,
		service.NewSurfaceLoader(posts, cfg.Surfaces.TemplateGlobs, logger),
		service.NewResolver(aliases),
		logger,
	)
	a.reports = report.NewWriter(cfg.Report.Dir, cfg.Report.Compress, logger)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
