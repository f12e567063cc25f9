package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Target is an open destination database and the dialect its statements use.
type Target struct {
	DB      *sql.DB
	Dialect loader.Dialect
}

func (t *Target) Close() error {
	return t.DB.Close()
}

// Conn reserves one connection for a load. A load must not share its
// connection with other work.
func (t *Target) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := t.DB.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reserve connection")
	}
	return conn, nil
}

// RetryPolicy controls how Open waits for a target to accept connections.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 4, Delay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}

// Open validates dsn for driver, opens the pool and pings it with backoff.
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (*Target, error) {
	return OpenWithRetry(ctx, driver, dsn, DefaultRetry, log)
}

func OpenWithRetry(ctx context.Context, driver, dsn string, policy RetryPolicy, log *zap.Logger) (*Target, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dialect, ok := loader.DialectFor(driver)
	if !ok {
		return nil, errors.Errorf("unsupported driver %q", driver)
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch dialect.Name {
	case loader.MSSQL.Name:
		if _, err := msdsn.Parse(dsn); err != nil {
			return nil, errors.Wrap(err, "mssql dsn")
		}
		// the legacy "mssql" driver binds ? placeholders
		sqlDB, err = sql.Open("mssql", dsn)
	case loader.SQLite.Name:
		sqlDB, err = sql.Open("sqlite", dsn)
		if err == nil && isMemory(dsn) {
			sqlDB.SetMaxOpenConns(1)
		}
	case loader.ClickHouse.Name:
		sqlDB, err = ConnectClickHouse(dsn)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialect.Name)
	}

	if err := ping(ctx, sqlDB, policy, log.With(zap.String("driver", dialect.Name))); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Target{DB: sqlDB, Dialect: dialect}, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func ping(ctx context.Context, p pinger, policy RetryPolicy, log *zap.Logger) error {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	err := retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return p.PingContext(pctx)
		},
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.MaxDelay(policy.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("Ping failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return errors.Wrap(err, "ping target")
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
