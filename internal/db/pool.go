package db

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var (
	pgPool *pgxpool.Pool
	pgMux  sync.Mutex
)

// GetPostgresPool returns the process-wide source pool, creating it on first
// use.
func GetPostgresPool(ctx context.Context, pgURL string) (*pgxpool.Pool, error) {
	pgMux.Lock()
	defer pgMux.Unlock()

	if pgPool != nil {
		return pgPool, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres url")
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	pgPool = pool
	return pgPool, nil
}

func ClosePostgresPool() {
	pgMux.Lock()
	defer pgMux.Unlock()

	if pgPool != nil {
		pgPool.Close()
		pgPool = nil
	}
}
