package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"makerspace/internal/db"
)

const testDBLockID int64 = 704512331

// NewTestDB connects to TEST_DATABASE_URL, migrates and empties the schema.
// The test is skipped when the variable is unset or the database is
// unreachable. Packages sharing the database are serialized by an advisory
// lock held for the lifetime of the test.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	database, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("skipping Postgres tests: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	conn, err := database.Connx(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Close()
	})

	require.NoError(t, db.RunMigrations(database, migrationsDir()))
	_, err = database.ExecContext(ctx, `
		TRUNCATE equipment_cancelled_bookings, equipment_bookings, equipment_slots, equipment, users, admin_settings
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return database
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func InsertUser(t *testing.T, database *sqlx.DB, name, email string, roleLevel int) int64 {
	t.Helper()
	var id int64
	require.NoError(t, database.GetContext(context.Background(), &id,
		`INSERT INTO users (name, email, role, role_level) VALUES ($1, $2, 'member', $3) RETURNING id`,
		name, email, roleLevel))
	return id
}

func InsertEquipment(t *testing.T, database *sqlx.DB, name string, priceCents int64) int64 {
	t.Helper()
	var id int64
	require.NoError(t, database.GetContext(context.Background(), &id,
		`INSERT INTO equipment (name, price_cents) VALUES ($1, $2) RETURNING id`,
		name, priceCents))
	return id
}
