// Package source reads loader input from delimited files, workbooks and
// Postgres tables.
package source

import (
	"os"

	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
)

type FileOptions struct {
	Sheet    string
	NAValues []string
	// Infer turns all-numeric columns into int64 or float64.
	Infer bool
}

// ReadFile picks a reader by extension: .csv, .tsv or .xlsx, each optionally
// compressed with .gz, .bz2, .xz or .zst.
func ReadFile(path string, opts FileOptions) (*tabular.Frame, error) {
	ext, comp := splitExt(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	defer file.Close()

	r, closeDec, err := decompress(file, comp)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	defer func() { _ = closeDec() }()

	var f *tabular.Frame
	switch ext {
	case ".csv":
		f, err = ReadCSV(r, CSVOptions{Comma: ',', NAValues: opts.NAValues, Infer: opts.Infer})
	case ".tsv":
		f, err = ReadCSV(r, CSVOptions{Comma: '\t', NAValues: opts.NAValues, Infer: opts.Infer})
	case ".xlsx":
		f, err = ReadXLSX(r, XLSXOptions{Sheet: opts.Sheet, NAValues: opts.NAValues, Infer: opts.Infer})
	default:
		return nil, errors.Errorf("%s: unsupported source type %q", path, ext)
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return f, nil
}
