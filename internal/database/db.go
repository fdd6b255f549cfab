package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultApplicationName = "uppal-crm"

type poolSettings struct {
	maxConns        int32
	applicationName string
}

// PoolOption tunes the pgx pool opened by Connect.
type PoolOption func(*poolSettings)

// WithMaxConns caps the pool size. Zero keeps the pgx default.
func WithMaxConns(n int32) PoolOption {
	return func(s *poolSettings) { s.maxConns = n }
}

// WithApplicationName sets application_name so connections are identifiable in pg_stat_activity.
func WithApplicationName(name string) PoolOption {
	return func(s *poolSettings) { s.applicationName = name }
}

// Connect opens a pgx pool for dsn and pings it before returning.
func Connect(ctx context.Context, dsn string, opts ...PoolOption) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN must not be empty")
	}

	cfg, err := poolConfig(dsn, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func poolConfig(dsn string, opts ...PoolOption) (*pgxpool.Config, error) {
	settings := poolSettings{applicationName: defaultApplicationName}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	if settings.maxConns > 0 {
		cfg.MaxConns = settings.maxConns
	}
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set && settings.applicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = settings.applicationName
	}
	return cfg, nil
}
