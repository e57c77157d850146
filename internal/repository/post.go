package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
)

type PgPostRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ PostRepository = (*PgPostRepository)(nil)

func NewPostRepository(db *pgxpool.Pool, logger *zap.Logger) *PgPostRepository {
	return &PgPostRepository{db: db, logger: logger}
}

func (r *PgPostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(title, ''), COALESCE(content, ''), COALESCE(featured_image, '')
		FROM blog_posts
		ORDER BY id`)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list posts", Err: err}
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.FeaturedImage); err != nil {
			return nil, &apperrors.PersistenceError{Op: "list posts", Err: err}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "list posts", Err: err}
	}

	r.logger.Debug("loaded posts", zap.Int("count", len(posts)))
	return posts, nil
}
