// Package sink implements append-only record sinks for the crawl tables.
package sink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// Mode selects how a sink treats existing output.
type Mode int

const (
	// ModeFresh discards existing tables and starts empty.
	ModeFresh Mode = iota
	// ModeAppend keeps existing rows; used when resuming.
	ModeAppend
)

func (m Mode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "fresh"
}

// Sink is a graph.RecordSink owning an external resource.
type Sink interface {
	graph.RecordSink
	Close() error
}

// Driver names.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverKafka    = "kafka"
)

// formatValue renders a record value as text. Absent values are empty.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return fmt.Sprint(x)
	}
}

// dateValues replaces time values with their date text for drivers that
// have no native date type.
func dateValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(time.DateOnly)
			continue
		}
		out[i] = v
	}
	return out
}

type dialect struct {
	real        string
	date        string
	placeholder func(i int) string
}

var (
	postgresDialect = dialect{
		real:        "DOUBLE PRECISION",
		date:        "DATE",
		placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	}
	sqliteDialect = dialect{
		real:        "REAL",
		date:        "TEXT",
		placeholder: func(int) string { return "?" },
	}
)

// columnType maps a column to its SQL type. Roles may reference movies
// that are persisted in a later step, so tables carry no foreign keys.
func (d dialect) columnType(column string) string {
	switch column {
	case "MovieId", "PersonId", "ProfessionId", "PersonProfessionId", "RoleId", "Year":
		return "INTEGER"
	case "Rating":
		return d.real
	case "BirthDate", "DeathDate":
		return d.date
	default:
		return "TEXT"
	}
}

func (d dialect) createTable(table graph.Table, ifNotExists bool) string {
	columns := table.Columns()
	defs := make([]string, len(columns))
	for i, col := range columns {
		def := fmt.Sprintf("%q %s", col, d.columnType(col))
		switch {
		case i == 0:
			def += " PRIMARY KEY"
		case col == "Url" || col == "ProfessionName":
			def += " NOT NULL"
		}
		defs[i] = def
	}
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%q (%s)", clause, string(table), strings.Join(defs, ", "))
}

func (d dialect) dropTable(table graph.Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %q", string(table))
}

// insert ignores rows whose id already exists. Ids are deterministic, so
// a step replayed after a crash before its checkpoint writes identical rows.
func (d dialect) insert(table graph.Table) string {
	columns := table.Columns()
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = strconv.Quote(col)
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		string(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// schemaStatements returns the DDL that prepares every table for mode.
func (d dialect) schemaStatements(mode Mode) []string {
	var stmts []string
	for _, table := range graph.Tables {
		if mode == ModeFresh {
			stmts = append(stmts, d.dropTable(table))
		}
		stmts = append(stmts, d.createTable(table, mode == ModeAppend))
	}
	return stmts
}
