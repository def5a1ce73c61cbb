package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Postgres stores records in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a pool from cfg and verifies the connection.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates tables and indexes for every registered kind in one
// transaction.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, kind := range core.Kinds() {
		for _, stmt := range schemaStatements(kind, postgresDialect) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create %s: %w", kind.Table, err)
			}
		}
	}
	return tx.Commit(ctx)
}

// Insert stores a new record. A unique-column collision returns an error
// wrapping core.ErrDuplicate.
func (p *Postgres) Insert(ctx context.Context, kind core.Kind, fields []core.Field) (core.Record, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	_, err := p.pool.Exec(ctx, insertSQL(kind, postgresDialect), insertArgs(kind, id, fields, createdAt)...)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Record{}, fmt.Errorf("insert %s: %w", kind.Table, core.ErrDuplicate)
		}
		return core.Record{}, fmt.Errorf("insert %s: %w", kind.Table, err)
	}

	return core.Record{ID: id, CreatedAt: createdAt, Fields: orderedFields(kind, fields)}, nil
}

// Count returns the number of records of kind.
func (p *Postgres) Count(ctx context.Context, kind core.Kind) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, countSQL(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind.Table, err)
	}
	return n, nil
}

// List returns up to limit records newest-first, skipping offset.
func (p *Postgres) List(ctx context.Context, kind core.Kind, limit, offset int) ([]core.Record, error) {
	rows, err := p.pool.Query(ctx, selectSQL(kind, postgresDialect, true), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table, err)
	}
	return collectRecords(kind, rows)
}

// All returns every record of kind newest-first.
func (p *Postgres) All(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	rows, err := p.pool.Query(ctx, selectSQL(kind, postgresDialect, false))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table, err)
	}
	return collectRecords(kind, rows)
}

// Ping verifies the pool can reach the database.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func collectRecords(kind core.Kind, rows pgx.Rows) ([]core.Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Record, error) {
		var rec core.Record
		values := make([]string, len(kind.Columns))
		dest := make([]any, 0, len(values)+2)
		dest = append(dest, &rec.ID)
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &rec.CreatedAt)

		if err := row.Scan(dest...); err != nil {
			return core.Record{}, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.Fields = recordFields(kind, values)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind.Table, err)
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// orderedFields returns fields in the kind's column order.
func orderedFields(kind core.Kind, fields []core.Field) []core.Field {
	byName := make(map[string]string, len(fields))
	for _, f := range fields {
		byName[f.Name] = f.Value
	}
	out := make([]core.Field, len(kind.Columns))
	for i, c := range kind.Columns {
		out[i] = core.Field{Name: c.Name, Value: byName[c.Name]}
	}
	return out
}
