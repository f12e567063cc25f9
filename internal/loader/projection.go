package loader

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
)

// maxIdentLen matches the SQL Server sysname length.
const maxIdentLen = 128

// Destination names a pre-existing table. Schema may be empty.
type Destination struct {
	Schema string
	Table  string
}

func (d Destination) String() string {
	if d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// Projection is the per-load statement metadata derived from the input shape.
type Projection struct {
	Columns      []string
	ColumnList   string
	Location     string
	Placeholders []string
	Wide         []bool

	group string
}

// Width is the number of parameters each row contributes.
func (p *Projection) Width() int { return len(p.Columns) }

// Group is one row's placeholder expressions joined by commas.
func (p *Projection) Group() string { return p.group }

// Project derives the column list, quoted location and per-column placeholders
// for loading f into dest. A column whose longest value renders to more than
// wideThreshold characters gets the dialect's wide cast for every row.
func Project(f *tabular.Frame, dest Destination, d Dialect, wideThreshold int) (*Projection, error) {
	if f == nil || f.Width() == 0 {
		return nil, ErrNoColumns
	}
	if !f.Aligned() {
		return nil, ErrRaggedColumns
	}
	location, err := quoteLocation(dest, d)
	if err != nil {
		return nil, err
	}

	p := &Projection{
		Columns:      f.Names(),
		Location:     location,
		Placeholders: make([]string, f.Width()),
		Wide:         make([]bool, f.Width()),
	}

	seen := make(map[string]struct{}, f.Width())
	quoted := make([]string, f.Width())
	for i, c := range f.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, errors.Wrapf(ErrUnnamedColumn, "column %d", i)
		}
		if err := validateIdent(c.Name); err != nil {
			return nil, errors.Wrapf(err, "column %d", i)
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return nil, errors.Wrapf(ErrDuplicateColumn, "%q", c.Name)
		}
		seen[key] = struct{}{}
		quoted[i] = d.QuoteIdent(c.Name)

		p.Wide[i] = maxWidth(c.Values) > wideThreshold
		p.Placeholders[i] = d.placeholder(p.Wide[i])
	}
	p.ColumnList = strings.Join(quoted, ", ")
	p.group = strings.Join(p.Placeholders, ", ")
	return p, nil
}

func maxWidth(values []any) int {
	longest := 0
	for _, v := range values {
		if w := tabular.DisplayWidth(v); w > longest {
			longest = w
		}
	}
	return longest
}

func quoteLocation(dest Destination, d Dialect) (string, error) {
	if strings.TrimSpace(dest.Table) == "" {
		return "", errors.Wrap(ErrInvalidDestination, "table name is empty")
	}
	if err := validateIdent(dest.Table); err != nil {
		return "", errors.Wrapf(ErrInvalidDestination, "table %q: %v", dest.Table, err)
	}
	if dest.Schema == "" {
		return d.QuoteIdent(dest.Table), nil
	}
	if err := validateIdent(dest.Schema); err != nil {
		return "", errors.Wrapf(ErrInvalidDestination, "schema %q: %v", dest.Schema, err)
	}
	return d.QuoteIdent(dest.Schema) + "." + d.QuoteIdent(dest.Table), nil
}

// validateIdent accepts any printable name up to maxIdentLen characters.
// Quoting takes care of reserved words and punctuation.
func validateIdent(name string) error {
	if !utf8.ValidString(name) {
		return errors.Wrap(ErrInvalidIdentifier, "not valid UTF-8")
	}
	if n := utf8.RuneCountInString(name); n > maxIdentLen {
		return errors.Wrapf(ErrInvalidIdentifier, "%d characters, limit is %d", n, maxIdentLen)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.Wrapf(ErrInvalidIdentifier, "control character %U", r)
		}
	}
	return nil
}
