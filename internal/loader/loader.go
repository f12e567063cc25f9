// Package loader bulk-loads a tabular.Frame into an existing table with
// multi-row INSERT ... SELECT ... UNION SELECT statements, each kept under a
// parameter ceiling.
//
// A load projects the frame once (column list, quoting, per-column
// placeholders), accumulates rows in input order, and submits a statement
// whenever the running parameter count would reach the ceiling. A failed
// statement stops the load; batches already submitted are not rolled back.
package loader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options tune a Loader. Zero values take defaults.
type Options struct {
	// Dialect defaults to MSSQL.
	Dialect Dialect
	// Ceiling is the parameter budget per statement, DefaultCeiling if zero.
	Ceiling int
	// WideThreshold defaults to DefaultWideThreshold.
	WideThreshold int
	// Logger defaults to zap.L().
	Logger *zap.Logger
	// Progress defaults to NopProgress.
	Progress Progress
}

func (o Options) withDefaults() Options {
	if o.Dialect.Name == "" {
		o.Dialect = MSSQL
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	if o.WideThreshold <= 0 {
		o.WideThreshold = DefaultWideThreshold
	}
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	if o.Progress == nil {
		o.Progress = NopProgress{}
	}
	return o
}

// Result summarizes a load. On failure it covers the batches that succeeded.
type Result struct {
	Rows     int
	Batches  int
	Duration time.Duration
}

// Loader writes frames through one execution channel.
type Loader struct {
	conn Execer
	opts Options
}

func New(conn Execer, opts Options) *Loader {
	return &Loader{conn: conn, opts: opts.withDefaults()}
}

// Load inserts every row of f into dest, in order.
func Load(ctx context.Context, conn Execer, f *tabular.Frame, dest Destination, opts Options) (Result, error) {
	return New(conn, opts).Load(ctx, f, dest)
}

// Project computes the projection this loader would use for f.
func (l *Loader) Project(f *tabular.Frame, dest Destination) (*Projection, error) {
	p, err := Project(f, dest, l.opts.Dialect, l.opts.WideThreshold)
	if err != nil {
		return nil, err
	}
	if p.Width() > l.opts.Ceiling {
		return nil, errors.Wrapf(ErrRowTooWide, "%d columns, ceiling %d", p.Width(), l.opts.Ceiling)
	}
	return p, nil
}

func (l *Loader) Load(ctx context.Context, f *tabular.Frame, dest Destination) (Result, error) {
	start := time.Now()
	proj, err := l.Project(f, dest)
	if err != nil {
		return Result{}, errors.Wrapf(err, "project %s", dest)
	}

	log := l.opts.Logger.With(
		zap.String("load_id", uuid.NewString()),
		zap.String("table", dest.String()),
	)
	log.Info("Starting load",
		zap.Int("rows", f.Len()),
		zap.Int("columns", proj.Width()),
		zap.Strings("placeholders", proj.Placeholders),
		zap.Int("ceiling", l.opts.Ceiling),
	)

	progress := guardedProgress{p: l.opts.Progress, log: log}
	progress.Start("loading "+dest.Table, f.Len())

	exec := &executor{conn: l.conn, proj: proj, dialect: l.opts.Dialect, log: log}
	var res Result
	err = l.accumulate(f, proj, func(b Batch) error {
		if err := exec.submit(ctx, b); err != nil {
			return err
		}
		if b.Rows() > 0 {
			res.Rows += b.Rows()
			res.Batches++
			progress.Advance(b.Rows())
		}
		return nil
	})
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	log.Info("Load complete",
		zap.Int("rows", res.Rows),
		zap.Int("batches", res.Batches),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// accumulate walks f row by row and hands each completed batch to flush,
// finishing with the (possibly empty) trailing batch.
func (l *Loader) accumulate(f *tabular.Frame, proj *Projection, flush func(Batch) error) error {
	acc := newAccumulator(proj, l.opts.Ceiling, l.opts.Dialect.MaxRows)
	row := make([]any, 0, proj.Width())
	for i := 0; i < f.Len(); i++ {
		row = f.Row(i, row[:0])
		if acc.add(row) {
			if err := flush(acc.take()); err != nil {
				return err
			}
		}
	}
	return flush(acc.take())
}
