package loader

// Batch is one statement's worth of rows: a placeholder group per row and the
// row-major parameter list those groups bind to.
type Batch struct {
	FirstRow int
	Groups   []string
	Params   []any
}

// Rows is the number of rows in the batch.
func (b Batch) Rows() int { return len(b.Groups) }

// accumulator collects rows until the next row's parameters would reach the
// ceiling.
//
// The test runs after a row is appended and adds that row's width again:
// params+width >= ceiling. A batch therefore closes one row earlier than
// "would the next row cross the ceiling" whenever the width divides the
// ceiling. TestBatchBoundaries pins the resulting batch sizes.
type accumulator struct {
	ceiling int
	maxRows int
	width   int
	group   string

	next   int
	params int
	batch  Batch
}

func newAccumulator(p *Projection, ceiling, maxRows int) *accumulator {
	a := &accumulator{
		ceiling: ceiling,
		maxRows: maxRows,
		width:   p.Width(),
		group:   p.Group(),
	}
	a.reset()
	return a
}

// add appends one normalized row and reports whether the batch must be
// flushed now.
func (a *accumulator) add(row []any) bool {
	a.batch.Groups = append(a.batch.Groups, a.group)
	a.batch.Params = append(a.batch.Params, row...)
	a.params += len(row)
	a.next++

	if a.params+a.width >= a.ceiling {
		return true
	}
	return a.maxRows > 0 && len(a.batch.Groups) >= a.maxRows
}

// take hands over the pending batch and starts a new one. The returned slices
// are never reused.
func (a *accumulator) take() Batch {
	b := a.batch
	a.reset()
	return b
}

func (a *accumulator) reset() {
	rows := 1
	if a.width > 0 {
		rows = a.ceiling / a.width
	}
	if a.maxRows > 0 && a.maxRows < rows {
		rows = a.maxRows
	}
	if rows < 1 {
		rows = 1
	}
	a.params = 0
	a.batch = Batch{
		FirstRow: a.next,
		Groups:   make([]string, 0, rows),
		Params:   make([]any, 0, rows*a.width),
	}
}
