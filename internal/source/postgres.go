package source

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
)

// Querier is the part of *pgxpool.Pool and *pgx.Conn the extractor uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Indexer can check for and create indexes.
type Indexer interface {
	Querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PGColumn struct {
	Name string
	Type string
}

// PGTable names a source table, optionally schema-qualified ("audit.events").
type PGTable string

func (t PGTable) identifier() pgx.Identifier {
	schema, name, ok := strings.Cut(string(t), ".")
	if !ok {
		return pgx.Identifier{schema}
	}
	return pgx.Identifier{schema, name}
}

func (t PGTable) parts() (schema, name string) {
	schema, name, ok := strings.Cut(string(t), ".")
	if !ok {
		return "", schema
	}
	return schema, name
}

func getColumns(ctx context.Context, q Querier, table PGTable) ([]PGColumn, error) {
	schema, name := table.parts()
	colQuery := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1 AND ($2 = '' OR table_schema = $2)
		ORDER BY ordinal_position
	`

	rows, err := q.Query(ctx, colQuery, name, schema)
	if err != nil {
		return nil, errors.Wrap(err, "query columns")
	}
	defer rows.Close()

	var cols []PGColumn
	for rows.Next() {
		var col PGColumn
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, errors.Wrap(err, "scan column")
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate columns")
	}
	if len(cols) == 0 {
		return nil, errors.Errorf("table %s not found or has no columns", table)
	}
	return cols, nil
}

// ExtractTable reads up to limit rows (all when limit <= 0) of table.
func ExtractTable(ctx context.Context, q Querier, table PGTable, limit int) (*tabular.Frame, error) {
	cols, err := getColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selectList(cols) + " FROM " + table.identifier().Sanitize()
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return collect(ctx, q, cols, query, args...)
}

// ExtractSince reads rows whose deltaCol is greater than lastSeen, in deltaCol
// order. An empty lastSeen reads from the beginning.
func ExtractSince(ctx context.Context, q Querier, table PGTable, deltaCol, lastSeen string, limit int) (*tabular.Frame, error) {
	cols, err := getColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	found := false
	for _, c := range cols {
		if c.Name == deltaCol {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Errorf("delta column %q not in %s", deltaCol, table)
	}

	delta := pgx.Identifier{deltaCol}.Sanitize()
	query := "SELECT " + selectList(cols) + " FROM " + table.identifier().Sanitize()
	args := []any{}
	if lastSeen != "" {
		// compare as text cast to the column type
		query += fmt.Sprintf(" WHERE %s > CAST($1 AS %s)", delta, castType(cols, deltaCol))
		args = append(args, lastSeen)
	}
	query += " ORDER BY " + delta + " ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	return collect(ctx, q, cols, query, args...)
}

func selectList(cols []PGColumn) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func castType(cols []PGColumn, name string) string {
	for _, c := range cols {
		if c.Name == name {
			switch c.Type {
			case "timestamp without time zone":
				return "timestamp"
			case "timestamp with time zone":
				return "timestamptz"
			case "USER-DEFINED", "ARRAY":
				return "text"
			}
			return c.Type
		}
	}
	return "text"
}

func collect(ctx context.Context, q Querier, cols []PGColumn, query string, args ...any) (*tabular.Frame, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query rows")
	}
	defer rows.Close()

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	f := tabular.New(names...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "row values")
		}
		for i, v := range values {
			values[i] = convertValue(cols[i].Type, v)
		}
		if err := f.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return f, nil
}

// convertValue turns pgx values into plain scalars the target drivers accept.
func convertValue(pgType string, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return formatUUID(x[:])
	case []byte:
		if pgType == "uuid" && len(x) == 16 {
			return formatUUID(x)
		}
		return x
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		return dv
	}
	return v
}

func formatUUID(b []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// EnsureDeltaIndex creates an index on deltaCol unless one with the expected
// name already exists.
func EnsureDeltaIndex(ctx context.Context, q Indexer, table PGTable, deltaCol string) error {
	schema, name := table.parts()
	indexName := fmt.Sprintf("idx_%s_%s_chugsql", name, deltaCol)

	rows, err := q.Query(ctx,
		`SELECT 1 FROM pg_indexes WHERE tablename = $1 AND indexname = $2 AND ($3 = '' OR schemaname = $3)`,
		name, indexName, schema)
	if err != nil {
		return errors.Wrap(err, "check index")
	}
	exists := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "check index")
	}
	if exists {
		return nil
	}

	create := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pgx.Identifier{indexName}.Sanitize(),
		table.identifier().Sanitize(),
		pgx.Identifier{deltaCol}.Sanitize(),
	)
	if _, err := q.Exec(ctx, create); err != nil {
		return errors.Wrapf(err, "create index on %s.%s", table, deltaCol)
	}
	return nil
}
