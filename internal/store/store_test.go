package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()

	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func email(i int) []core.Field {
	return []core.Field{{Name: "email", Value: fmt.Sprintf("user%d@example.com", i)}}
}

func TestSQLite_InsertAndRead(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, core.RegistrationKind, []core.Field{
		{Name: "email", Value: "ada@example.com"},
		{Name: "firstName", Value: "Ada"},
		{Name: "attendanceType", Value: "virtual"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, core.RegistrationKind.ColumnNames()[0], rec.Fields[0].Name, "fields come back in column order")

	all, err := s.All(ctx, core.RegistrationKind)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec.ID, all[0].ID)
	assert.Equal(t, "Ada", all[0].Get("firstName"))
	assert.Equal(t, "virtual", all[0].Get("attendanceType"))
	assert.Equal(t, "", all[0].Get("phone"))
	assert.True(t, rec.CreatedAt.Equal(all[0].CreatedAt))
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, core.NewsletterKind, email(1))
	require.NoError(t, err)

	_, err = s.Insert(ctx, core.NewsletterKind, email(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicate)

	n, err := s.Count(ctx, core.NewsletterKind)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_ContactAllowsRepeats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, core.ContactKind, []core.Field{{Name: "email", Value: "same@example.com"}})
		require.NoError(t, err)
	}

	n, err := s.Count(ctx, core.ContactKind)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSQLite_ListNewestFirst(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := s.Insert(ctx, core.NewsletterKind, email(i))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, core.NewsletterKind, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "user6@example.com", page[0].Get("email"))
	assert.Equal(t, "user4@example.com", page[2].Get("email"))

	page, err = s.List(ctx, core.NewsletterKind, 3, 6)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "user0@example.com", page[0].Get("email"))

	page, err = s.List(ctx, core.NewsletterKind, 3, 30)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

// TestSQLite_ConcurrentDuplicates fires many inserts of the same email at
// once; exactly one may win.
func TestSQLite_ConcurrentDuplicates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	const numRequests = 50
	var successCount, duplicateCount, errorCount int32

	var wg sync.WaitGroup
	wg.Add(numRequests)
	for i := 0; i < numRequests; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, core.RegistrationKind, []core.Field{{Name: "email", Value: "race@example.com"}})
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, core.ErrDuplicate):
				atomic.AddInt32(&duplicateCount, 1)
			default:
				t.Logf("unexpected error: %v", err)
				atomic.AddInt32(&errorCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount)
	assert.Equal(t, int32(numRequests-1), duplicateCount)
	assert.Zero(t, errorCount)
}

func TestSQLite_EnsureSchemaIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLite_MissingTable(t *testing.T) {
	s, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Count(context.Background(), core.ContactKind)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicate)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestSchemaStatements(t *testing.T) {
	pg := schemaStatements(core.NewsletterKind, postgresDialect)
	require.Len(t, pg, 4)
	assert.Contains(t, pg[0], `CREATE TABLE IF NOT EXISTS "newsletter_subscriptions"`)
	assert.Contains(t, pg[0], `"created_at" TIMESTAMPTZ NOT NULL`)
	assert.Contains(t, pg[0], `"seq" BIGINT GENERATED ALWAYS AS IDENTITY`)
	assert.Contains(t, pg[2], `CREATE UNIQUE INDEX IF NOT EXISTS "newsletter_subscriptions_email_key"`)
	assert.Equal(t, `ALTER TABLE "newsletter_subscriptions" ADD COLUMN IF NOT EXISTS "seq" BIGINT GENERATED ALWAYS AS IDENTITY`, pg[3])

	contact := schemaStatements(core.ContactKind, sqliteDialect)
	assert.Len(t, contact, 2, "contacts have no unique index")
	assert.Contains(t, contact[0], `"created_at" INTEGER NOT NULL`)
	assert.NotContains(t, contact[0], `"seq"`)
}

func TestInsertAndSelectSQL(t *testing.T) {
	ins := insertSQL(core.NewsletterKind, postgresDialect)
	assert.Equal(t, `INSERT INTO "newsletter_subscriptions" ("id", "email", "created_at") VALUES ($1, $2, $3)`, ins)

	sel := selectSQL(core.NewsletterKind, sqliteDialect, true)
	assert.True(t, strings.HasSuffix(sel, `ORDER BY "created_at" DESC, rowid DESC LIMIT ? OFFSET ?`), sel)

	pgSel := selectSQL(core.NewsletterKind, postgresDialect, true)
	assert.True(t, strings.HasSuffix(pgSel, `ORDER BY "created_at" DESC, "seq" DESC LIMIT $1 OFFSET $2`), pgSel)
	assert.True(t, strings.HasPrefix(pgSel, `SELECT "id", "email", "created_at" FROM`), pgSel)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
}

// TestPostgres runs against a live database when TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	p, err := NewPostgres(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.EnsureSchema(ctx))

	addr := fmt.Sprintf("pg-%s@example.com", strings.ReplaceAll(t.Name(), "/", "-"))
	_, err = p.Insert(ctx, core.NewsletterKind, []core.Field{{Name: "email", Value: addr}})
	if errors.Is(err, core.ErrDuplicate) {
		t.Skip("fixture already present from an earlier run")
	}
	require.NoError(t, err)

	_, err = p.Insert(ctx, core.NewsletterKind, []core.Field{{Name: "email", Value: addr}})
	assert.ErrorIs(t, err, core.ErrDuplicate)

	page, err := p.List(ctx, core.NewsletterKind, 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, addr, page[0].Get("email"))
}
