package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}

	query := "SELECT id FROM tasks WHERE user_id = ? AND id IN (?,?)"
	assert.Equal(t, "SELECT id FROM tasks WHERE user_id = $1 AND id IN ($2,$3)", pg.Rebind(query))
	assert.Equal(t, query, lite.Rebind(query))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "tasks.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("tasks.db"))
	assert.Equal(t, "file:tasks.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:tasks.db?mode=rwc"))
}

func TestMigrate_IdempotentAndUnique(t *testing.T) {
	ctx := context.Background()
	db, err := New(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "second migration must be a no-op")

	insert := "INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('a', 'a@x.com', 'h', '2025-01-01', '2025-01-01')"
	_, err = db.ExecContext(ctx, insert)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestMigrate_ForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := New(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))

	_, err = db.ExecContext(ctx, "INSERT INTO tasks (user_id, title, created_at, updated_at) VALUES (999, 't', '2025-01-01', '2025-01-01')")
	assert.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New("oracle", "whatever")
	assert.Error(t, err)
}
