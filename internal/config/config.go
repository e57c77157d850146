package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Hasher   HasherConfig   `mapstructure:"hasher"`
	Surfaces SurfacesConfig `mapstructure:"surfaces"`
	Report   ReportConfig   `mapstructure:"report"`
	Server   ServerConfig   `mapstructure:"server"`
}

type StorageConfig struct {
	Type      string          `mapstructure:"type"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	SeaweedFS SeaweedFSConfig `mapstructure:"seaweedfs"`
	Local     LocalConfig     `mapstructure:"local"`
}

type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
	Bucket     string `mapstructure:"bucket"`
}

type SeaweedFSConfig struct {
	MasterURL string `mapstructure:"master_url"`
	PublicURL string `mapstructure:"public_url"`
}

type LocalConfig struct {
	Path          string `mapstructure:"path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type CatalogConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// URL takes precedence over the discrete fields when set.
	URL string `mapstructure:"url"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DB      int    `mapstructure:"db"`
}

type HasherConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	Referer     string        `mapstructure:"referer"`
}

type SurfacesConfig struct {
	TemplateGlobs []string    `mapstructure:"template_globs"`
	PathAliases   []PathAlias `mapstructure:"path_aliases"`
}

// PathAlias maps a site-relative URL prefix onto a storage path prefix.
type PathAlias struct {
	Prefix        string `mapstructure:"prefix"`
	StoragePrefix string `mapstructure:"storage_prefix"`
}

type ReportConfig struct {
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

const envPrefix = "ASSET_DEDUP"

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.type", "supabase")
	v.SetDefault("storage.supabase.url", "")
	v.SetDefault("storage.supabase.service_key", "")
	v.SetDefault("storage.supabase.bucket", "blog-images")
	v.SetDefault("storage.seaweedfs.master_url", "localhost:9333")
	v.SetDefault("storage.seaweedfs.public_url", "")
	v.SetDefault("storage.local.path", "./data")
	v.SetDefault("storage.local.public_base_url", "")

	v.SetDefault("catalog.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.url", "")
	v.SetDefault("sqlite.path", "asset-dedup.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("hasher.concurrency", 10)
	v.SetDefault("hasher.timeout", 30*time.Second)
	// Empty means the hasher's browser default
	v.SetDefault("hasher.user_agent", "")
	v.SetDefault("hasher.referer", "")

	v.SetDefault("surfaces.template_globs", []string{"public/**/*.html"})
	v.SetDefault("surfaces.path_aliases", []map[string]interface{}{
		{"prefix": "/campaigns/", "storage_prefix": "originals/campaigns/"},
	})

	v.SetDefault("report.dir", "backup")
	v.SetDefault("report.compress", false)
	v.SetDefault("server.port", 8080)
}

// Load reads configuration from configFile, or from configs/config.local.yaml
// and configs/config.yaml when configFile is empty. A missing file is not an
// error: defaults and ASSET_DEDUP_* environment variables still apply.
func Load(configFile string) (*Config, error) {
	// .env.local is shared with the web app; absence is fine
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Fall back to the variable names the web app already uses
	_ = v.BindEnv("storage.supabase.url", envPrefix+"_STORAGE_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	_ = v.BindEnv("storage.supabase.service_key", envPrefix+"_STORAGE_SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL")

	if configFile == "" {
		if _, err := os.Stat("configs/config.local.yaml"); err == nil {
			configFile = "configs/config.local.yaml"
		} else if _, err := os.Stat("configs/config.yaml"); err == nil {
			configFile = "configs/config.yaml"
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode failed: %w", err)
	}
	return &cfg, nil
}

// Validate reports setup errors that must abort a run before any work starts.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case "supabase":
		s := c.Storage.Supabase
		if s.URL == "" {
			errs = append(errs, errors.New("storage.supabase.url is required"))
		}
		if s.Bucket == "" {
			errs = append(errs, errors.New("storage.supabase.bucket is required"))
		}
		if s.ServiceKey == "" {
			errs = append(errs, errors.New("storage.supabase.service_key is required"))
		} else if err := CheckServiceRole(s.ServiceKey); err != nil {
			errs = append(errs, err)
		}
	case "seaweedfs":
		if c.Storage.SeaweedFS.MasterURL == "" {
			errs = append(errs, errors.New("storage.seaweedfs.master_url is required"))
		}
	case "local":
		if c.Storage.Local.Path == "" {
			errs = append(errs, errors.New("storage.local.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage type: %s", c.Storage.Type))
	}

	switch c.Catalog.Driver {
	case "postgres":
	case "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported catalog driver: %s", c.Catalog.Driver))
	}

	if c.Hasher.Concurrency < 1 {
		errs = append(errs, errors.New("hasher.concurrency must be at least 1"))
	}
	if c.Hasher.Timeout <= 0 {
		errs = append(errs, errors.New("hasher.timeout must be positive"))
	}

	return errors.Join(errs...)
}
