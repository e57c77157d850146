package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"asset-dedup/internal/model"
	"asset-dedup/internal/repository"
)

// SurfaceSource supplies the texts scanned for asset references.
type SurfaceSource interface {
	Load(ctx context.Context) ([]model.Surface, error)
}

// SurfaceLoader reads static templates matched by glob patterns and the
// rich-text records of the post repository. Either source may be empty.
type SurfaceLoader struct {
	posts  repository.PostRepository
	globs  []string
	logger *zap.Logger
}

var _ SurfaceSource = (*SurfaceLoader)(nil)

func NewSurfaceLoader(posts repository.PostRepository, templateGlobs []string, logger *zap.Logger) *SurfaceLoader {
	return &SurfaceLoader{posts: posts, globs: templateGlobs, logger: logger}
}

// Load fails if any source cannot be read: a partial surface set would make
// referenced assets look unused.
func (l *SurfaceLoader) Load(ctx context.Context) ([]model.Surface, error) {
	var templates, posts []model.Surface

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		templates, err = l.loadTemplates()
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = l.loadPosts(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("surfaces loaded",
		zap.Int("templates", len(templates)),
		zap.Int("posts", len(posts)))

	return append(templates, posts...), nil
}

func (l *SurfaceLoader) loadTemplates() ([]model.Surface, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range l.globs {
		matches, err := doublestar.FilepathGlob(filepath.Clean(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid template glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	surfaces := make([]model.Surface, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, fmt.Errorf("failed to stat template: %w", err)
		}
		if info.IsDir() {
			continue
		}
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		surfaces = append(surfaces, model.Surface{
			Kind:    model.SurfaceStaticTemplate,
			ID:      filepath.ToSlash(f),
			Title:   filepath.Base(f),
			Content: string(content),
		})
	}
	return surfaces, nil
}

func (l *SurfaceLoader) loadPosts(ctx context.Context) ([]model.Surface, error) {
	if l.posts == nil {
		return nil, nil
	}
	posts, err := l.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	surfaces := make([]model.Surface, 0, len(posts))
	for _, p := range posts {
		s := model.Surface{
			Kind:    model.SurfaceRichTextField,
			ID:      strconv.FormatInt(p.ID, 10),
			Title:   p.Title,
			Content: p.Content,
		}
		if p.FeaturedImage != "" {
			s.Extra = []string{p.FeaturedImage}
		}
		surfaces = append(surfaces, s)
	}
	return surfaces, nil
}
