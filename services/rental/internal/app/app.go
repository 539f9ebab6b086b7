package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentbook/internal/util"
	"rentbook/pkg/auth"
	"rentbook/pkg/events"
	"rentbook/pkg/rental"
	"rentbook/pkg/storage"
	"rentbook/pkg/store"
)

// Store backends accepted by Config.StoreBackend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds runtime configuration for the rental application. Grid,
// Objects, Publisher and Revoker may be injected; otherwise they are built
// from the connection settings.
type Config struct {
	StoreBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	Grid          store.Grid

	Minio   storage.MinioConfig
	Objects storage.ObjectStore

	AMQPURL      string
	AMQPExchange string
	Publisher    events.Publisher

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration
	Revoker     auth.TokenRevoker
	Operators   []auth.Operator

	PresignExpiry time.Duration
	Now           func() time.Time
}

// App wires the rental repositories to object storage, change events and
// operator sessions.
type App struct {
	repos         *rental.Repos
	objects       storage.ObjectStore
	publisher     events.Publisher
	sessions      *auth.Sessions
	operators     *auth.Operators
	presignExpiry time.Duration
	now           func() time.Time
	closers       []func() error
}

// OpenGrid builds the grid for the configured backend. The returned close
// function is never nil.
func OpenGrid(cfg Config) (store.Grid, func() error, error) {
	nop := func() error { return nil }
	if cfg.Grid != nil {
		return cfg.Grid, nop, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", BackendMemory:
		return store.NewMemoryGrid(), nop, nil
	case BackendRedis:
		grid, err := store.NewRedisGrid(cfg.RedisAddr, cfg.RedisPassword, prefixed(cfg.RedisPrefix, "grid"))
		if err != nil {
			return nil, nop, fmt.Errorf("init redis grid: %w", err)
		}
		return grid, grid.Close, nil
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nop, errors.New("database URL required")
		}
		grid, err := store.NewGormGrid(cfg.DatabaseURL)
		if err != nil {
			return nil, nop, fmt.Errorf("init postgres grid: %w", err)
		}
		return grid, grid.Close, nil
	default:
		return nil, nop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// New constructs the application and ensures every sheet exists.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{
		objects:       cfg.Objects,
		publisher:     cfg.Publisher,
		presignExpiry: cfg.PresignExpiry,
		now:           cfg.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.presignExpiry <= 0 {
		a.presignExpiry = 15 * time.Minute
	}
	if err := a.init(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg Config) error {
	grid, closeGrid, err := OpenGrid(cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeGrid)

	if a.objects == nil && cfg.Minio.Endpoint != "" {
		objects, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			return err
		}
		a.objects = objects
	}

	if a.publisher == nil {
		if cfg.AMQPURL != "" {
			pub, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange})
			if err != nil {
				return err
			}
			a.publisher = pub
		} else if strings.EqualFold(cfg.StoreBackend, BackendRedis) {
			pub, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				Stream:   prefixed(cfg.RedisPrefix, "events"),
			})
			if err != nil {
				return err
			}
			a.publisher = pub
		} else {
			a.publisher = events.NopPublisher{}
		}
	}
	a.closers = append(a.closers, a.publisher.Close)

	revoker := cfg.Revoker
	if revoker == nil {
		if strings.EqualFold(cfg.StoreBackend, BackendRedis) {
			r, err := auth.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword, prefixed(cfg.RedisPrefix, "revoked"))
			if err != nil {
				return err
			}
			a.closers = append(a.closers, r.Close)
			revoker = r
		} else {
			revoker = auth.NewMemoryTokenRevoker()
		}
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	a.sessions, err = auth.NewSessions(cfg.JWTSecret, ttl, revoker, auth.SessionOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}
	a.operators, err = auth.NewOperators(cfg.Operators)
	if err != nil {
		return fmt.Errorf("init operators: %w", err)
	}

	a.repos = rental.New(grid,
		rental.WithClock(a.now),
		rental.WithObserver(events.NewRelay(a.publisher)),
	)
	if err := a.repos.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure sheets: %w", err)
	}
	return nil
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Repos exposes the underlying repositories.
func (a *App) Repos() *rental.Repos {
	return a.repos
}

// CurrentPeriod returns the month and year used when a request omits them.
func (a *App) CurrentPeriod() (int, int) {
	now := a.now()
	return int(now.Month()), now.Year()
}

// Login checks operator credentials and opens a session.
func (a *App) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	name, err := a.operators.Authenticate(username, password)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("login_failed", "username", strings.ToLower(strings.TrimSpace(username)))
		return "", time.Time{}, ErrInvalidCredentials
	}
	token, expires, err := a.sessions.NewSession(name)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("new session: %w", err)
	}
	util.LoggerFromContext(ctx).Info("login", "operator", name)
	return token, expires, nil
}

// Logout revokes the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// OperatorFromToken resolves the operator behind a session token.
func (a *App) OperatorFromToken(token string) (string, error) {
	name, err := a.sessions.Operator(token)
	if err != nil {
		return "", ErrUnauthorized
	}
	return name, nil
}

func prefixed(prefix, suffix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rentbook"
	}
	return prefix + ":" + suffix
}

// classify maps store and rental errors onto the app sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInvalidDate), errors.Is(err, rental.ErrInvalidField):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, store.ErrDuplicateID), errors.Is(err, rental.ErrRoomOccupied):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, rental.ErrRoomNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
