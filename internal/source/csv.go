package source

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
)

// DefaultNAValues are the cell texts read as missing values.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-NaN", "-nan", "<NA>",
	"N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

type CSVOptions struct {
	// Comma defaults to ','.
	Comma rune
	// NAValues defaults to DefaultNAValues. Pass an empty non-nil slice to
	// keep every cell as text.
	NAValues []string
	// Infer converts columns whose present cells all parse as integers or
	// floats.
	Infer bool
}

// ReadCSV reads a header row followed by data rows.
func ReadCSV(r io.Reader, opts CSVOptions) (*tabular.Frame, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("csv: missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "csv header")
	}
	names := append([]string(nil), header...)
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	na := naSet(opts.NAValues)
	f := tabular.New(names...)
	row := make([]any, len(names))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csv")
		}
		for i, cell := range rec {
			if _, ok := na[cell]; ok {
				row[i] = tabular.Missing
			} else {
				row[i] = cell
			}
		}
		if err := f.Append(row...); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, errors.Wrapf(err, "csv line %d", line)
		}
	}

	if opts.Infer {
		for i := range f.Columns {
			inferColumn(&f.Columns[i])
		}
	}
	return f, nil
}

func naSet(values []string) map[string]struct{} {
	if values == nil {
		values = DefaultNAValues
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inferColumn rewrites c in place as int64 or float64 when every present
// value parses as one. Missing values stay missing.
func inferColumn(c *tabular.Column) {
	ints, floats, present := true, true, 0
	for _, v := range c.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		present++
		if ints {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				ints = false
			}
		}
		if !ints {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				floats = false
				break
			}
		}
	}
	if present == 0 || (!ints && !floats) {
		return
	}
	for j, v := range c.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if ints {
			n, _ := strconv.ParseInt(s, 10, 64)
			c.Values[j] = n
		} else {
			x, _ := strconv.ParseFloat(s, 64)
			c.Values[j] = x
		}
	}
}
