package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"asset-dedup/pkg/storage"
)

func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func NewDBPool(ctx context.Context, cfg DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

// NewRedis returns nil when the cache is disabled; repositories treat a nil
// client as "no cache".
func NewRedis(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, port),
		Password: "",
		DB:       cfg.DB,
	})
}

// NewSQLite opens the local catalog snapshot through the pure-Go driver.
func NewSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        path,
		}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
}

func NewStorage(cfg StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "supabase":
		return storage.NewSupabaseStorage(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket)
	case "seaweedfs":
		return storage.NewSeaweedFSStorage(cfg.SeaweedFS.MasterURL, cfg.SeaweedFS.PublicURL)
	case "local":
		return storage.NewLocalStorage(cfg.Local.Path, cfg.Local.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
