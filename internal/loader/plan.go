package loader

import (
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
)

// Span is the row range and parameter count of one planned statement.
type Span struct {
	FirstRow int
	Rows     int
	Params   int
}

// Plan runs projection and batching without touching a database and returns
// the statements a Load with the same options would send.
func Plan(f *tabular.Frame, dest Destination, opts Options) (*Projection, []Span, error) {
	l := New(nil, opts)
	proj, err := l.Project(f, dest)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "project %s", dest)
	}
	var spans []Span
	err = l.accumulate(f, proj, func(b Batch) error {
		if b.Rows() > 0 {
			spans = append(spans, Span{FirstRow: b.FirstRow, Rows: b.Rows(), Params: len(b.Params)})
		}
		return nil
	})
	return proj, spans, err
}
