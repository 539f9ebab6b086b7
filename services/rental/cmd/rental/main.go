package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"rentbook/internal/ratelimit"
	"rentbook/internal/util"
	"rentbook/pkg/storage"
	"rentbook/services/rental/internal/app"
	"rentbook/services/rental/internal/config"
	"rentbook/services/rental/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	sessionTTL, err := cfg.SessionDuration()
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	publicLimiter, err := newLimiter(cfg, "consulta", cfg.PublicRateLimitPerMinute)
	if err != nil {
		log.Fatalf("failed to init public rate limiter: %v", err)
	}
	loginLimiter, err := newLimiter(cfg, "login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		log.Fatalf("failed to init login rate limiter: %v", err)
	}

	appCore, err := app.New(context.Background(), app.Config{
		StoreBackend:  cfg.StoreBackend,
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisPrefix,
		Minio: storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		},
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		JWTSecret:    cfg.JWTSecret,
		JWTIssuer:    cfg.JWTIssuer,
		JWTAudience:  cfg.JWTAudience,
		SessionTTL:   sessionTTL,
		Operators:    cfg.Operators,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close()

	httpServer := server.New(server.Config{
		App:            appCore,
		PublicLimiter:  publicLimiter,
		LoginLimiter:   loginLimiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("rental server listening", "addr", addr, "store", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// newLimiter shares counters through Redis when the records live there too,
// so every replica sees the same quota.
func newLimiter(cfg config.FileConfig, scope string, perMinute int) (ratelimit.Limiter, error) {
	if cfg.StoreBackend == app.BackendRedis {
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "rentbook"
		}
		return ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix+":ratelimit:"+scope, perMinute, time.Minute)
	}
	return ratelimit.NewMemoryFixedWindowLimiter(perMinute, time.Minute)
}
