package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Upload backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type Config struct {
	Port        string        `env:"PORT,         default=5000"`
	Env         string        `env:"ENV,          default=development"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	JWTSecret   string        `env:"JWT_SECRET,   required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=168h"`
	CORSOrigins []string      `env:"CORS_ORIGINS, default=http://localhost:5173"`

	// AuthRateLimit is the per-client request rate allowed on /api/auth.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Views  ViewsConfig
	Upload UploadConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tour_builder"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type ViewsConfig struct {
	DedupTTL time.Duration `env:"VIEW_DEDUP_TTL, default=30m"`
	Workers  int           `env:"VIEW_WORKERS,   default=4"`
}

type UploadConfig struct {
	Backend       string `env:"UPLOAD_BACKEND,   default=local"`
	Dir           string `env:"UPLOAD_DIR,       default=./uploads"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,  default=http://localhost:5000"`
	MaxBytes      int64  `env:"UPLOAD_MAX_BYTES, default=104857600"`

	S3 S3Config
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION, default=us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	PublicURL string `env:"S3_PUBLIC_URL"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Upload.Backend {
	case BackendLocal:
	case BackendS3:
		if c.Upload.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.Upload.Backend)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
