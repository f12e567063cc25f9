package loader

import "strings"

// DefaultCeiling is the parameter budget per statement. SQL Server rejects
// statements with more than 2100 parameters.
const DefaultCeiling = 2000

// DefaultWideThreshold is the longest string form, in characters, a column may
// hold before its placeholder is cast to a large text type.
const DefaultWideThreshold = 256

// Dialect describes how a backend quotes identifiers and binds parameters.
type Dialect struct {
	Name string

	// QuoteOpen and QuoteClose delimit identifiers. QuoteClose is doubled
	// inside a name.
	QuoteOpen  string
	QuoteClose string

	Placeholder string
	// WideCast is the placeholder expression used for wide text columns.
	WideCast string
	// Union joins the per-row SELECT groups.
	Union string

	// MaxRows caps rows per statement when the backend limits compound
	// selects. Zero means no cap.
	MaxRows int
}

var (
	MSSQL = Dialect{
		Name:        "mssql",
		QuoteOpen:   "[",
		QuoteClose:  "]",
		Placeholder: "?",
		WideCast:    "cast(? as varchar(max))",
		Union:       "UNION",
	}

	// SQLite accepts at most 500 terms in a compound select by default.
	SQLite = Dialect{
		Name:        "sqlite",
		QuoteOpen:   `"`,
		QuoteClose:  `"`,
		Placeholder: "?",
		WideCast:    "cast(? as text)",
		Union:       "UNION",
		MaxRows:     500,
	}

	// ClickHouse refuses a bare UNION unless union_default_mode is set.
	ClickHouse = Dialect{
		Name:        "clickhouse",
		QuoteOpen:   `"`,
		QuoteClose:  `"`,
		Placeholder: "?",
		WideCast:    "CAST(? AS String)",
		Union:       "UNION ALL",
	}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, bool) {
	switch strings.ToLower(driver) {
	case "mssql", "sqlserver":
		return MSSQL, true
	case "sqlite", "sqlite3":
		return SQLite, true
	case "clickhouse":
		return ClickHouse, true
	}
	return Dialect{}, false
}

// QuoteIdent quotes a single identifier.
func (d Dialect) QuoteIdent(name string) string {
	return d.QuoteOpen + strings.ReplaceAll(name, d.QuoteClose, d.QuoteClose+d.QuoteClose) + d.QuoteClose
}

func (d Dialect) placeholder(wide bool) string {
	if wide {
		return d.WideCast
	}
	return d.Placeholder
}
