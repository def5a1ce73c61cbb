package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/intake/internal/core"
)

// SQLite stores records in a SQLite database file. created_at is stored as
// Unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Writers are serialized on one connection; a :memory: database only
	// exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return &SQLite{db: db}, nil
}

// EnsureSchema creates tables and indexes for every registered kind.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range core.Kinds() {
		for _, stmt := range schemaStatements(kind, sqliteDialect) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create %s: %w", kind.Table, err)
			}
		}
	}
	return tx.Commit()
}

// Insert stores a new record. A unique-column collision returns an error
// wrapping core.ErrDuplicate.
func (s *SQLite) Insert(ctx context.Context, kind core.Kind, fields []core.Field) (core.Record, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, insertSQL(kind, sqliteDialect), insertArgs(kind, id, fields, createdAt.UnixNano())...)
	if err != nil {
		if isConstraintUnique(err) {
			return core.Record{}, fmt.Errorf("insert %s: %w", kind.Table, core.ErrDuplicate)
		}
		return core.Record{}, fmt.Errorf("insert %s: %w", kind.Table, err)
	}

	return core.Record{ID: id, CreatedAt: createdAt, Fields: orderedFields(kind, fields)}, nil
}

// Count returns the number of records of kind.
func (s *SQLite) Count(ctx context.Context, kind core.Kind) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countSQL(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind.Table, err)
	}
	return n, nil
}

// List returns up to limit records newest-first, skipping offset.
func (s *SQLite) List(ctx context.Context, kind core.Kind, limit, offset int) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL(kind, sqliteDialect, true), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table, err)
	}
	return scanRecords(kind, rows)
}

// All returns every record of kind newest-first.
func (s *SQLite) All(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL(kind, sqliteDialect, false))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table, err)
	}
	return scanRecords(kind, rows)
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanRecords(kind core.Kind, rows *sql.Rows) ([]core.Record, error) {
	defer rows.Close()

	records := []core.Record{}
	for rows.Next() {
		var (
			rec   core.Record
			nanos int64
		)
		values := make([]string, len(kind.Columns))
		dest := make([]any, 0, len(values)+2)
		dest = append(dest, &rec.ID)
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &nanos)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind.Table, err)
		}
		rec.CreatedAt = time.Unix(0, nanos).UTC()
		rec.Fields = recordFields(kind, values)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind.Table, err)
	}
	return records, nil
}

func isConstraintUnique(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
