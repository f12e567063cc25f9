package source

import (
	"io"

	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

type XLSXOptions struct {
	// Sheet defaults to the first sheet in the workbook.
	Sheet    string
	NAValues []string
	Infer    bool
}

// ReadXLSX reads one sheet whose first row is the header. Rows shorter than
// the header are padded with missing values.
func ReadXLSX(r io.Reader, opts XLSXOptions) (*tabular.Frame, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer func() { _ = wb.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "xlsx sheet %q", sheet)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, errors.Errorf("xlsx sheet %q: missing header row", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(err, "xlsx sheet %q header", sheet)
	}

	na := naSet(opts.NAValues)
	f := tabular.New(header...)
	row := make([]any, len(header))
	for line := 2; rows.Next(); line++ {
		cells, err := rows.Columns()
		if err != nil {
			return nil, errors.Wrapf(err, "xlsx sheet %q row %d", sheet, line)
		}
		for i := range row {
			row[i] = tabular.Missing
			if i >= len(cells) {
				continue
			}
			if _, ok := na[cells[i]]; !ok {
				row[i] = cells[i]
			}
		}
		for _, extra := range cells[min(len(cells), len(header)):] {
			if extra != "" {
				return nil, errors.Errorf("xlsx sheet %q row %d: more cells than header columns", sheet, line)
			}
		}
		if err := f.Append(row...); err != nil {
			return nil, errors.Wrapf(err, "xlsx sheet %q row %d", sheet, line)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, errors.Wrapf(err, "xlsx sheet %q", sheet)
	}

	if opts.Infer {
		for i := range f.Columns {
			inferColumn(&f.Columns[i])
		}
	}
	return f, nil
}
