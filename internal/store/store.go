// Package store persists submission records.
//
// Two backends share one table layout, generated from the registered kinds:
// PostgreSQL through a pgx connection pool, and SQLite through the pure-Go
// modernc driver. Each kind's unique column carries a UNIQUE index, so
// concurrent duplicate inserts are decided by the database and surface as
// core.ErrDuplicate.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
)

// Store is a record store with lifecycle methods.
type Store interface {
	core.Store

	// EnsureSchema creates missing tables and indexes for every registered kind.
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend. The schema is not touched.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg)
	case config.DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// dialect captures the SQL differences between backends.
type dialect struct {
	placeholder   func(n int) string
	timestampType string
	sequence      string // insertion-order column DDL, empty when the backend has one built in
	tiebreak      string // secondary ORDER BY column for equal timestamps
}

var postgresDialect = dialect{
	placeholder:   func(n int) string { return fmt.Sprintf("$%d", n) },
	timestampType: "TIMESTAMPTZ",
	sequence:      `"seq" BIGINT GENERATED ALWAYS AS IDENTITY`,
	tiebreak:      `"seq"`,
}

var sqliteDialect = dialect{
	placeholder:   func(int) string { return "?" },
	timestampType: "INTEGER",
	tiebreak:      "rowid",
}

// quoteIdentifier quotes a table or column name. Names come from kind
// descriptors, never from requests.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// schemaStatements returns the DDL for one kind.
func schemaStatements(kind core.Kind, d dialect) []string {
	table := quoteIdentifier(kind.Table)

	cols := []string{`"id" TEXT PRIMARY KEY`}
	for _, c := range kind.Columns {
		cols = append(cols, quoteIdentifier(c.DBColumn)+` TEXT NOT NULL DEFAULT ''`)
	}
	cols = append(cols, `"created_at" `+d.timestampType+` NOT NULL`)
	if d.sequence != "" {
		cols = append(cols, d.sequence)
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (\"created_at\")",
			quoteIdentifier(kind.Table+"_created_at_idx"), table),
	}
	if col, ok := kind.UniqueColumn(); ok {
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdentifier(kind.Table+"_"+col+"_key"), table, quoteIdentifier(col)))
	}
	if d.sequence != "" {
		// Tables created before the sequence column existed.
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", table, d.sequence))
	}
	return stmts
}

// insertSQL builds the INSERT for a kind: id, columns in order, created_at.
func insertSQL(kind core.Kind, d dialect) string {
	names := []string{`"id"`}
	for _, c := range kind.Columns {
		names = append(names, quoteIdentifier(c.DBColumn))
	}
	names = append(names, `"created_at"`)

	params := make([]string, len(names))
	for i := range params {
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(kind.Table), strings.Join(names, ", "), strings.Join(params, ", "))
}

// selectSQL builds a newest-first SELECT; paged adds LIMIT and OFFSET.
func selectSQL(kind core.Kind, d dialect, paged bool) string {
	names := []string{`"id"`}
	for _, c := range kind.Columns {
		names = append(names, quoteIdentifier(c.DBColumn))
	}
	names = append(names, `"created_at"`)

	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY \"created_at\" DESC, %s DESC",
		strings.Join(names, ", "), quoteIdentifier(kind.Table), d.tiebreak)
	if paged {
		q += fmt.Sprintf(" LIMIT %s OFFSET %s", d.placeholder(1), d.placeholder(2))
	}
	return q
}

func countSQL(kind core.Kind) string {
	return "SELECT COUNT(*) FROM " + quoteIdentifier(kind.Table)
}

// insertArgs orders submitted fields to match insertSQL. Missing fields are
// stored as empty strings.
func insertArgs(kind core.Kind, id string, fields []core.Field, createdAt any) []any {
	byName := make(map[string]string, len(fields))
	for _, f := range fields {
		byName[f.Name] = f.Value
	}

	args := make([]any, 0, len(kind.Columns)+2)
	args = append(args, id)
	for _, c := range kind.Columns {
		args = append(args, byName[c.Name])
	}
	return append(args, createdAt)
}

// recordFields pairs scanned values with the kind's column names.
func recordFields(kind core.Kind, values []string) []core.Field {
	fields := make([]core.Field, len(kind.Columns))
	for i, c := range kind.Columns {
		fields[i] = core.Field{Name: c.Name, Value: values[i]}
	}
	return fields
}
