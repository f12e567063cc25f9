package db

import (
	"context"
	"testing"
	"time"

	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestPing_RetriesUntilReachable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := &flakyPinger{failures: 2}

	require.NoError(t, ping(context.Background(), p, fastRetry, zap.New(core)))
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, 2, logs.FilterMessage("Ping failed, retrying").Len())
}

func TestPing_GivesUp(t *testing.T) {
	p := &flakyPinger{failures: 10}

	err := ping(context.Background(), p, fastRetry, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, p.calls)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	target, err := OpenWithRetry(context.Background(), "sqlite", ":memory:", fastRetry, zap.NewNop())
	require.NoError(t, err)
	defer target.Close()

	assert.Equal(t, loader.SQLite, target.Dialect)

	ctx := context.Background()
	conn, err := target.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE t (a INTEGER)`)
	require.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestClickHouseOptions(t *testing.T) {
	opts, err := clickHouseOptions("tcp://etl:pw@ch.internal:9000/analytics")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.internal:9000"}, opts.Addr)
	assert.Equal(t, "analytics", opts.Auth.Database)
	assert.Equal(t, "etl", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)

	opts, err = clickHouseOptions("localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "default", opts.Auth.Database)
	assert.Equal(t, "default", opts.Auth.Username)

	_, err = clickHouseOptions("")
	require.Error(t, err)
}
