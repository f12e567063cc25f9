package loader

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type execCall struct {
	query string
	args  []any
}

// recordingExecer records every statement and fails the failOn-th call.
type recordingExecer struct {
	calls  []execCall
	failOn int
	err    error
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.calls = append(r.calls, execCall{query: query, args: append([]any(nil), args...)})
	if r.failOn == len(r.calls) {
		return nil, r.err
	}
	return driver.RowsAffected(len(args)), nil
}

func (r *recordingExecer) allArgs() []any {
	var out []any
	for _, c := range r.calls {
		out = append(out, c.args...)
	}
	return out
}

type recordingProgress struct {
	description string
	total       int
	starts      int
	advances    []int
}

func (p *recordingProgress) Start(description string, total int) {
	p.description = description
	p.total = total
	p.starts++
}

func (p *recordingProgress) Advance(rows int) { p.advances = append(p.advances, rows) }

var people = Destination{Schema: "dbo", Table: "people"}

// sequentialFrame builds rows*width cells numbered 0..n-1 in row-major order.
func sequentialFrame(t *testing.T, width, rows int) *tabular.Frame {
	t.Helper()
	names := make([]string, width)
	for i := range names {
		names[i] = "c" + string(rune('a'+i%26)) + strings.Repeat("x", i/26)
	}
	f := tabular.New(names...)
	n := 0
	for r := 0; r < rows; r++ {
		row := make([]any, width)
		for c := range row {
			row[c] = n
			n++
		}
		require.NoError(t, f.Append(row...))
	}
	return f
}

func TestLoad_SingleRowWithWideColumn(t *testing.T) {
	long := strings.Repeat("x", 300)
	f, err := tabular.FromRows([]string{"id", "name", "bio"}, [][]any{{1, "short", long}})
	require.NoError(t, err)

	conn := &recordingExecer{}
	progress := &recordingProgress{}
	res, err := Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop(), Progress: progress})
	require.NoError(t, err)

	require.Len(t, conn.calls, 1)
	assert.Equal(t,
		"INSERT INTO [dbo].[people] ([id], [name], [bio]) SELECT ?, ?, cast(? as varchar(max))",
		conn.calls[0].query)
	assert.Equal(t, []any{1, "short", long}, conn.calls[0].args)
	assert.Equal(t, 1, strings.Count(conn.calls[0].query, "SELECT"))

	assert.Equal(t, Result{Rows: 1, Batches: 1, Duration: res.Duration}, res)
	assert.Equal(t, "loading people", progress.description)
	assert.Equal(t, 1, progress.total)
	assert.Equal(t, []int{1}, progress.advances)
}

func TestLoad_EmptyInput(t *testing.T) {
	f := tabular.New("id", "name")
	conn := &recordingExecer{}
	progress := &recordingProgress{}

	res, err := Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop(), Progress: progress})
	require.NoError(t, err)

	assert.Empty(t, conn.calls)
	assert.Empty(t, progress.advances)
	assert.Equal(t, 1, progress.starts)
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 0, res.Batches)
}

// TestBatchBoundaries pins rows per batch for a given row width. The flush test
// is params+width >= ceiling evaluated after the row is added, which closes a
// batch one row before a plain "next row would exceed the ceiling" check when
// the width divides the ceiling.
func TestBatchBoundaries(t *testing.T) {
	tests := []struct {
		width     int
		wantRows  int
		naiveRows int
	}{
		{width: 1, wantRows: 1999, naiveRows: 2000},
		{width: 3, wantRows: 666, naiveRows: 666},
		{width: 7, wantRows: 285, naiveRows: 285},
		{width: 10, wantRows: 199, naiveRows: 200},
		{width: 999, wantRows: 2, naiveRows: 2},
		{width: 1000, wantRows: 1, naiveRows: 2},
		{width: 2000, wantRows: 1, naiveRows: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("width=%d", tt.width), func(t *testing.T) {
			rows := 2*tt.wantRows + 1
			f := sequentialFrame(t, tt.width, rows)

			_, spans, err := Plan(f, Destination{Table: "t"}, Options{Logger: zap.NewNop()})
			require.NoError(t, err)

			require.Len(t, spans, 3, "width %d", tt.width)
			assert.Equal(t, Span{FirstRow: 0, Rows: tt.wantRows, Params: tt.wantRows * tt.width}, spans[0])
			assert.Equal(t, Span{FirstRow: tt.wantRows, Rows: tt.wantRows, Params: tt.wantRows * tt.width}, spans[1])
			assert.Equal(t, Span{FirstRow: 2 * tt.wantRows, Rows: 1, Params: tt.width}, spans[2])

			for _, s := range spans {
				assert.LessOrEqual(t, s.Params, DefaultCeiling)
			}
			naive := 0
			for naive*tt.width+tt.width <= DefaultCeiling {
				naive++
			}
			assert.Equal(t, tt.naiveRows, naive)
		})
	}
}

func TestLoad_Completeness(t *testing.T) {
	const width, rows = 3, 5000
	f := sequentialFrame(t, width, rows)
	conn := &recordingExecer{}
	progress := &recordingProgress{}

	res, err := Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop(), Progress: progress})
	require.NoError(t, err)

	want := make([]any, 0, width*rows)
	for i := 0; i < width*rows; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, conn.allArgs())

	// 666 + 666 + ... + 338
	require.Len(t, conn.calls, 8)
	assert.Equal(t, []int{666, 666, 666, 666, 666, 666, 666, 338}, progress.advances)
	assert.Equal(t, rows, res.Rows)
	assert.Equal(t, 8, res.Batches)

	for _, c := range conn.calls {
		groups := strings.Count(c.query, "SELECT ")
		assert.Equal(t, len(c.args)/width, groups)
		assert.Equal(t, groups-1, strings.Count(c.query, " UNION SELECT "))
	}
}

func TestLoad_ExactMultipleHasNoEmptyTrailingStatement(t *testing.T) {
	f := sequentialFrame(t, 10, 199*2)
	conn := &recordingExecer{}
	progress := &recordingProgress{}

	_, err := Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop(), Progress: progress})
	require.NoError(t, err)

	assert.Len(t, conn.calls, 2)
	assert.Equal(t, []int{199, 199}, progress.advances)
}

func TestLoad_NullNormalization(t *testing.T) {
	var nilPtr *string
	f, err := tabular.FromRows([]string{"a", "b", "c", "d"}, [][]any{
		{math.NaN(), tabular.Missing, nil, nilPtr},
		{1.5, "x", 2, "y"},
	})
	require.NoError(t, err)

	conn := &recordingExecer{}
	_, err = Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	require.Len(t, conn.calls, 1)
	assert.Equal(t, []any{nil, nil, nil, nil, 1.5, "x", 2, "y"}, conn.calls[0].args)
	for _, a := range conn.calls[0].args {
		assert.NotEqual(t, "NaN", a)
		assert.NotEqual(t, "nan", a)
	}
}

func TestLoad_WideColumnCastOnEveryRow(t *testing.T) {
	rows := [][]any{
		{1, "a", strings.Repeat("y", 256)},
		{2, "b", "short"},
		{3, "c", strings.Repeat("z", 257)},
		{4, "d", nil},
	}
	f, err := tabular.FromRows([]string{"id", "name", "notes"}, rows)
	require.NoError(t, err)

	conn := &recordingExecer{}
	_, err = Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	require.Len(t, conn.calls, 1)
	q := conn.calls[0].query
	assert.Equal(t, len(rows), strings.Count(q, "?, ?, cast(? as varchar(max))"))
	assert.Equal(t, len(rows), strings.Count(q, "cast("))
}

func TestLoad_ColumnAtThresholdIsNotCast(t *testing.T) {
	f, err := tabular.FromRows([]string{"notes"}, [][]any{{strings.Repeat("y", 256)}})
	require.NoError(t, err)

	conn := &recordingExecer{}
	_, err = Load(context.Background(), conn, f, people, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	require.Len(t, conn.calls, 1)
	assert.NotContains(t, conn.calls[0].query, "cast(")
}

func TestLoad_FailureOnSecondBatch(t *testing.T) {
	const width = 10
	f := sequentialFrame(t, width, 199*2+5)
	wantErr := errors.New("Violation of PRIMARY KEY constraint")
	conn := &recordingExecer{failOn: 2, err: wantErr}
	progress := &recordingProgress{}

	core, logs := observer.New(zapcore.ErrorLevel)
	res, err := Load(context.Background(), conn, f, people, Options{Logger: zap.New(core), Progress: progress})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Batch)
	assert.Equal(t, 199, batchErr.FirstRow)
	assert.Equal(t, 199, batchErr.Rows)
	assert.Equal(t, conn.calls[1].query, batchErr.Statement)
	assert.Equal(t, conn.calls[1].args, batchErr.Params)
	assert.Contains(t, batchErr.Error(), "rows 199-397")

	// batch 1 sent once, batch 3 never sent
	assert.Len(t, conn.calls, 2)
	assert.Equal(t, []int{199}, progress.advances)
	assert.Equal(t, 199, res.Rows)
	assert.Equal(t, 1, res.Batches)

	failures := logs.FilterMessage("Batch insert failed").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, int64(2), fields["batch"])
	assert.Equal(t, conn.calls[1].query, fields["statement"])
	assert.Equal(t, wantErr.Error(), fields["error"])
	assert.NotNil(t, fields["params"])
}

func TestLoad_ProjectionErrorsSendNothing(t *testing.T) {
	ragged := &tabular.Frame{Columns: []tabular.Column{
		{Name: "a", Values: []any{1, 2}},
		{Name: "b", Values: []any{1}},
	}}
	tests := []struct {
		name    string
		frame   *tabular.Frame
		dest    Destination
		opts    Options
		wantErr error
	}{
		{"nil frame", nil, people, Options{}, ErrNoColumns},
		{"no columns", tabular.New(), people, Options{}, ErrNoColumns},
		{"unnamed", tabular.New("a", " "), people, Options{}, ErrUnnamedColumn},
		{"duplicate", tabular.New("id", "ID"), people, Options{}, ErrDuplicateColumn},
		{"control char", tabular.New("a\x00b"), people, Options{}, ErrInvalidIdentifier},
		{"too long", tabular.New(strings.Repeat("n", 129)), people, Options{}, ErrInvalidIdentifier},
		{"ragged", ragged, people, Options{}, ErrRaggedColumns},
		{"no table", tabular.New("a"), Destination{Schema: "dbo"}, Options{}, ErrInvalidDestination},
		{"bad schema", tabular.New("a"), Destination{Schema: "d\nbo", Table: "t"}, Options{}, ErrInvalidDestination},
		{"too wide", tabular.New("a", "b", "c"), people, Options{Ceiling: 2}, ErrRowTooWide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordingExecer{}
			progress := &recordingProgress{}
			tt.opts.Logger = zap.NewNop()
			tt.opts.Progress = progress

			_, err := Load(context.Background(), conn, tt.frame, tt.dest, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, conn.calls)
			assert.Zero(t, progress.starts)
		})
	}
}

type panickyProgress struct{ advances int }

func (p *panickyProgress) Start(string, int) { panic("display gone") }
func (p *panickyProgress) Advance(int) {
	p.advances++
	panic("display gone")
}

func TestLoad_ProgressPanicDoesNotAbort(t *testing.T) {
	f := sequentialFrame(t, 10, 450)
	conn := &recordingExecer{}
	progress := &panickyProgress{}

	core, logs := observer.New(zapcore.WarnLevel)
	res, err := Load(context.Background(), conn, f, people, Options{Logger: zap.New(core), Progress: progress})
	require.NoError(t, err)

	assert.Equal(t, 450, res.Rows)
	assert.Len(t, conn.calls, 3)
	assert.Equal(t, 3, progress.advances)
	assert.Equal(t, 4, logs.FilterMessage("Progress observer panicked").Len())
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := sequentialFrame(t, 2, 3)
	conn := &recordingExecer{}
	_, err := Load(ctx, conn, f, people, Options{Logger: zap.NewNop()})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conn.calls)
}

func TestLoad_CustomCeiling(t *testing.T) {
	f := sequentialFrame(t, 2, 7)
	conn := &recordingExecer{}

	_, err := Load(context.Background(), conn, f, Destination{Table: "t"}, Options{Logger: zap.NewNop(), Ceiling: 6})
	require.NoError(t, err)

	// 2 rows: 4+2 >= 6
	require.Len(t, conn.calls, 4)
	assert.Equal(t, `INSERT INTO [t] ([ca], [cb]) SELECT ?, ? UNION SELECT ?, ?`, conn.calls[0].query)
	assert.Equal(t, `INSERT INTO [t] ([ca], [cb]) SELECT ?, ?`, conn.calls[3].query)
}

func TestPlan_SQLiteRowCap(t *testing.T) {
	f := sequentialFrame(t, 1, 1200)

	_, spans, err := Plan(f, Destination{Table: "t"}, Options{Dialect: SQLite, Logger: zap.NewNop()})
	require.NoError(t, err)

	require.Len(t, spans, 3)
	assert.Equal(t, 500, spans[0].Rows)
	assert.Equal(t, 500, spans[1].Rows)
	assert.Equal(t, 200, spans[2].Rows)
}

func BenchmarkLoad(b *testing.B) {
	names := []string{"id", "name", "email", "score", "notes"}
	f := tabular.New(names...)
	for i := 0; i < 10000; i++ {
		_ = f.Append(i, "name", "someone@example.com", float64(i)/3, nil)
	}
	conn := &discardExecer{}
	l := New(conn, Options{Logger: zap.NewNop()})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.Load(context.Background(), f, people); err != nil {
			b.Fatal(err)
		}
	}
}

type discardExecer struct{}

func (discardExecer) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return driver.RowsAffected(0), nil
}
