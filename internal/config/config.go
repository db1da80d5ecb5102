package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Contact  ContactConfig  `mapstructure:"contact"`
	Pages    PagesConfig    `mapstructure:"pages"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// WorkerConfig 控制 asynq worker 的并发与指标端口。
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MetricsPort int `mapstructure:"metrics_port"`
}

// BackendConfig 描述上游 portfolio API 的位置。
// Timeout 为 0 表示不在客户端设置超时，交给底层传输自己的限制。
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	PublicEndpoint   string        `mapstructure:"public_endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	UseSSL           bool          `mapstructure:"use_ssl"`
	Region           string        `mapstructure:"region"`
	Bucket           string        `mapstructure:"bucket"`
	BucketLookup     string        `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool          `mapstructure:"auto_create_bucket"`
	ResumeObjectKey  string        `mapstructure:"resume_object_key"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
}

// ContactConfig 控制联系表单的限流与投递重试。
type ContactConfig struct {
	RateLimitPerHour int `mapstructure:"rate_limit_per_hour"`
	MaxRetry         int `mapstructure:"max_retry"`
}

// PagesConfig 控制页面视图模型的展示参数。
type PagesConfig struct {
	FacetCap int `mapstructure:"facet_cap"`
}

// CORSConfig 列出允许的 WebSocket 来源，为空时只接受同源。
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr 返回 host:port 形式的 Redis 地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitList(v.GetString("cors.allowed_origins"))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.metrics_port", 9091)
	v.SetDefault("backend.base_url", "http://localhost:8000/api")
	v.SetDefault("backend.timeout", time.Duration(0))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "portfolio")
	v.SetDefault("database.user", "portfolio")
	v.SetDefault("database.password", "portfolio")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "portfolio")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", false)
	v.SetDefault("minio.presign_ttl", 10*time.Minute)
	v.SetDefault("minio.resume_object_key", "static/Rishikesh_Deshetty_Resume.pdf")
	v.SetDefault("contact.rate_limit_per_hour", 5)
	v.SetDefault("contact.max_retry", 5)
	v.SetDefault("pages.facet_cap", 6)
	v.SetDefault("cors.allowed_origins", "")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                    "API_PORT",
		"worker.concurrency":          "WORKER_CONCURRENCY",
		"worker.metrics_port":         "WORKER_METRICS_PORT",
		"backend.base_url":            "BACKEND_BASE_URL",
		"backend.timeout":             "BACKEND_TIMEOUT",
		"database.host":               "DATABASE_HOST",
		"database.port":               "DATABASE_PORT",
		"database.name":               "POSTGRES_DB",
		"database.user":               "POSTGRES_USER",
		"database.password":           "POSTGRES_PASSWORD",
		"database.sslmode":            "DATABASE_SSLMODE",
		"redis.host":                  "REDIS_HOST",
		"redis.port":                  "REDIS_PORT",
		"minio.endpoint":              "MINIO_ENDPOINT",
		"minio.public_endpoint":       "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":         "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":     "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":               "MINIO_USE_SSL",
		"minio.region":                "MINIO_REGION",
		"minio.bucket":                "MINIO_BUCKET",
		"minio.bucket_lookup":         "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":    "MINIO_AUTO_CREATE_BUCKET",
		"minio.presign_ttl":           "MINIO_PRESIGN_TTL",
		"minio.resume_object_key":     "MINIO_RESUME_OBJECT_KEY",
		"contact.rate_limit_per_hour": "CONTACT_RATE_LIMIT_PER_HOUR",
		"contact.max_retry":           "CONTACT_MAX_RETRY",
		"pages.facet_cap":             "PAGES_FACET_CAP",
		"cors.allowed_origins":        "CORS_ALLOWED_ORIGINS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	if cfg.Worker.MetricsPort < 0 {
		return errors.New("worker metrics port must not be negative")
	}
	if err := cfg.Backend.Validate(); err != nil {
		return err
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.MinIO.ResumeObjectKey == "" {
		return errors.New("minio resume object key is required")
	}
	if cfg.MinIO.PresignTTL <= 0 {
		return errors.New("minio presign ttl must be positive")
	}
	if cfg.Contact.RateLimitPerHour < 0 {
		return errors.New("contact rate limit must not be negative")
	}
	if cfg.Contact.MaxRetry < 0 {
		return errors.New("contact max retry must not be negative")
	}
	if cfg.Pages.FacetCap <= 0 {
		return errors.New("pages facet cap must be positive")
	}
	return nil
}

// Validate 校验上游地址，worker 与 web 共用。
func (b BackendConfig) Validate() error {
	raw := strings.TrimSpace(b.BaseURL)
	if raw == "" {
		return errors.New("backend base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse backend base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base url must be http(s), got %q", raw)
	}
	if u.Host == "" {
		return errors.New("backend base url host missing")
	}
	if b.Timeout < 0 {
		return errors.New("backend timeout must not be negative")
	}
	return nil
}
