package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/infra/sqlite"
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.SQLiteConfig{
		DatabasePath: filepath.Join(t.TempDir(), "nested", "test.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close(ctx) })

	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)

	require.NoError(t, db.Ping(ctx))

	for _, table := range []string{"users", "posts", "post_likes", "post_comments"} {
		var name string

		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)

	insert := "INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)"

	_, err := db.ExecContext(ctx, insert, "a", "Ann", "ann@example.com", "x", 1)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "b", "Ann", "ann@example.com", "x", 1)
	require.Error(t, err)
	assert.True(t, sqlite.IsUniqueViolation(err))

	assert.False(t, sqlite.IsUniqueViolation(errors.New("other")))
}

func TestTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	errAbort := errors.New("abort")

	err := db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, name, email, password_hash, created_at) VALUES ('a', 'Ann', 'a@x.io', 'x', 1)",
		); err != nil {
			return err
		}

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Zero(t, count)
}
