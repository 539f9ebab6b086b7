package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rentbook/pkg/auth"
)

// ConfigPath is the file Load reads when given an empty path.
var ConfigPath = envOr("RENTAL_CONFIG", "config.yaml")

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	StoreBackend  string `yaml:"storeBackend"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`

	JWTSecret   string          `yaml:"jwtSecret"`
	JWTIssuer   string          `yaml:"jwtIssuer"`
	JWTAudience string          `yaml:"jwtAudience"`
	SessionTTL  string          `yaml:"sessionTTL"`
	Operators   []auth.Operator `yaml:"operators"`

	PublicRateLimitPerMinute int      `yaml:"publicRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	TrustedProxies           []string `yaml:"trustedProxies"`
	CORSOrigins              []string `yaml:"corsOrigins"`
	MaxUploadBytes           int64    `yaml:"maxUploadBytes"`
}

// Load reads config from path (defaults to ConfigPath), applies environment
// overrides and defaults, then validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.StoreBackend, "RENTAL_STORE_BACKEND")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	setString(&cfg.AMQPURL, "AMQP_URL")
	setString(&cfg.JWTSecret, "RENTAL_JWT_SECRET")
	setString(&cfg.SessionTTL, "RENTAL_SESSION_TTL")
	if v := os.Getenv("RENTAL_PUBLIC_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PublicRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("RENTAL_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	if v := os.Getenv("RENTAL_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "memory"
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = "12h"
	}
	if cfg.PublicRateLimitPerMinute == 0 {
		cfg.PublicRateLimitPerMinute = 30
	}
	if cfg.LoginRateLimitPerMinute == 0 {
		cfg.LoginRateLimitPerMinute = 10
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
}

func validateConfig(cfg FileConfig) error {
	switch cfg.StoreBackend {
	case "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for storeBackend redis (set in config.yaml or REDIS_ADDR)")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for storeBackend postgres (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: storeBackend must be memory, redis or postgres, got %q", cfg.StoreBackend)
	}
	if cfg.MinioEndpoint != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return errors.New("config: minioAccessKey and minioSecretKey are required when minioEndpoint is set")
		}
		if cfg.MinioBucket == "" {
			return errors.New("config: minioBucket is required when minioEndpoint is set")
		}
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (set in config.yaml or RENTAL_JWT_SECRET)")
	}
	if _, err := cfg.SessionDuration(); err != nil {
		return err
	}
	if len(cfg.Operators) == 0 {
		return errors.New("config: at least one operator is required")
	}
	for i, op := range cfg.Operators {
		if strings.TrimSpace(op.Username) == "" || strings.TrimSpace(op.PasswordHash) == "" {
			return fmt.Errorf("config: operators[%d] needs username and passwordHash", i)
		}
	}
	if cfg.PublicRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must not be negative")
	}
	return nil
}

// SessionDuration parses SessionTTL.
func (c FileConfig) SessionDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.SessionTTL))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid sessionTTL %q", c.SessionTTL)
	}
	return d, nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
