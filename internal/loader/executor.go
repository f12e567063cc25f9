package loader

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"
)

// Execer is the execution channel a load writes through. *sql.DB, *sql.Conn
// and *sql.Tx all satisfy it. A load uses it from a single goroutine and
// expects exclusive use for its duration.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BuildStatement renders
//
//	INSERT INTO <location> (<columns>) SELECT <g1> UNION SELECT <g2> ...
//
// Only identifiers and placeholders end up in the text; values are always
// bound.
func BuildStatement(p *Projection, d Dialect, groups []string) string {
	union := " " + d.Union + " SELECT "

	size := len("INSERT INTO  () SELECT ") + len(p.Location) + len(p.ColumnList)
	for _, g := range groups {
		size += len(g) + len(union)
	}

	var b strings.Builder
	b.Grow(size)
	b.WriteString("INSERT INTO ")
	b.WriteString(p.Location)
	b.WriteString(" (")
	b.WriteString(p.ColumnList)
	b.WriteString(") SELECT ")
	for i, g := range groups {
		if i > 0 {
			b.WriteString(union)
		}
		b.WriteString(g)
	}
	return b.String()
}

type executor struct {
	conn    Execer
	proj    *Projection
	dialect Dialect
	log     *zap.Logger

	batches int
}

// submit sends one batch. Empty batches are dropped: a statement with no
// SELECT groups is not valid SQL.
func (e *executor) submit(ctx context.Context, b Batch) error {
	if b.Rows() == 0 {
		return nil
	}
	e.batches++
	stmt := BuildStatement(e.proj, e.dialect, b.Groups)

	err := ctx.Err()
	if err == nil {
		_, err = e.conn.ExecContext(ctx, stmt, b.Params...)
	}
	if err != nil {
		e.log.Error("Batch insert failed",
			zap.Int("batch", e.batches),
			zap.Int("first_row", b.FirstRow),
			zap.Int("rows", b.Rows()),
			zap.String("statement", stmt),
			zap.Any("params", b.Params),
			zap.Error(err),
		)
		return &BatchError{
			Batch:     e.batches,
			FirstRow:  b.FirstRow,
			Rows:      b.Rows(),
			Statement: stmt,
			Params:    b.Params,
			Err:       err,
		}
	}

	e.log.Debug("Inserted batch",
		zap.Int("batch", e.batches),
		zap.Int("rows", b.Rows()),
		zap.Int("params", len(b.Params)),
	)
	return nil
}
